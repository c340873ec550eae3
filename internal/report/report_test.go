package report

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"conform/internal/fixture"
	"conform/internal/trace"
)

const fixturePath = "../fixture/testdata/collections.toml"

func load(t *testing.T) *fixture.Module {
	t.Helper()
	m, err := fixture.Load(fixturePath, fixture.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

// frozen is a module without lazy conformances, so it evaluates in parallel.
const frozen = `
[module]
name = "Frozen"

[[protocol]]
name = "Equatable"

[[protocol]]
name = "Box"
assoc = [{ name = "Item", bounds = ["Equatable"] }]

[[type]]
name = "Wrapper"
params = [{ name = "T", bounds = ["Equatable"] }]

[[conformance]]
type = "Int"
protocol = "Equatable"

[[conformance]]
type = "Wrapper"
protocol = "Equatable"

[[conformance]]
type = "Wrapper"
protocol = "Box"
types = { Item = "Wrapper<T>" }

[[query]]
type = "Wrapper<Int>"
protocol = "Box"
assoc = "Item"
expect = "Wrapper<Int>"

[[query]]
type = "Wrapper<Wrapper<Int>>"
protocol = "Box"
assoc = "Item"
expect = "Wrapper<Wrapper<Int>>"

[[query]]
type = "Wrapper<String>"
protocol = "Box"
assoc = "Item"
`

func TestEvaluateCollections(t *testing.T) {
	m := load(t)
	rep, err := Evaluate(context.Background(), m, Options{Jobs: 4})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if rep.Failed != 0 || rep.Passed != len(m.Queries) {
		var buf bytes.Buffer
		_ = Write(&buf, rep, FormatText)
		t.Fatalf("unexpected failures:\n%s", buf.String())
	}
	if rep.Conformances != 10 || rep.Derived == 0 {
		t.Fatalf("unexpected counts: %d conformances, %d derived", rep.Conformances, rep.Derived)
	}
	for i, r := range rep.Results {
		if r.Index != i {
			t.Fatalf("results must keep query order, got %d at %d", r.Index, i)
		}
	}
	if _, err := uuid.Parse(rep.RunID); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", rep.RunID, err)
	}
}

func TestEvaluateParallelMatchesSequential(t *testing.T) {
	seq, err := fixture.Parse("frozen.toml", []byte(frozen), fixture.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	par, err := fixture.Parse("frozen.toml", []byte(frozen), fixture.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := Evaluate(context.Background(), seq, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	b, err := Evaluate(context.Background(), par, Options{Jobs: 8})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if len(a.Results) != len(b.Results) {
		t.Fatalf("result count mismatch")
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			t.Fatalf("result %d differs: %+v vs %+v", i, a.Results[i], b.Results[i])
		}
	}
	last := b.Results[2]
	if last.Passed || !strings.Contains(last.Error, "does not conform") {
		t.Fatalf("Wrapper<String> should not conform, got %+v", last)
	}
	if b.Passed != 2 || b.Failed != 1 {
		t.Fatalf("unexpected tally %d/%d", b.Passed, b.Failed)
	}
}

func TestEffectiveJobs(t *testing.T) {
	par, err := fixture.Parse("frozen.toml", []byte(frozen), fixture.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := EffectiveJobs(par, 3); got != 3 {
		t.Fatalf("EffectiveJobs(frozen, 3) = %d", got)
	}
	if got := EffectiveJobs(par, 0); got != runtime.GOMAXPROCS(0) {
		t.Fatalf("EffectiveJobs(frozen, 0) = %d, want GOMAXPROCS", got)
	}
	if got := EffectiveJobs(load(t), 8); got != 1 {
		t.Fatalf("modules with incomplete records run sequentially, got %d", got)
	}
}

type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestEvaluateReportsProgress(t *testing.T) {
	m := load(t)
	sink := &collectSink{}
	if _, err := Evaluate(context.Background(), m, Options{Progress: sink}); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	queued, done := 0, 0
	for _, ev := range sink.events {
		switch ev.Status {
		case StatusQueued:
			queued++
		case StatusDone:
			done++
		}
	}
	if queued != len(m.Queries) || done != len(m.Queries) {
		t.Fatalf("expected %d queued and done events, got %d/%d", len(m.Queries), queued, done)
	}
}

func TestEvaluateTracesModuleSpan(t *testing.T) {
	m := load(t)
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := Evaluate(ctx, m, Options{}); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var ended bool
	for _, ev := range ring.Snapshot() {
		if ev.Name == "evaluate" && ev.Kind == trace.KindSpanEnd {
			ended = ev.Extra["passed"] == "8"
		}
	}
	if !ended {
		t.Fatalf("evaluate span with pass count not found")
	}
}

func TestEvaluateHonorsCancellation(t *testing.T) {
	m := load(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Evaluate(ctx, m, Options{Jobs: 1}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestWriteFormats(t *testing.T) {
	m := load(t)
	rep, err := Evaluate(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	var text bytes.Buffer
	if err := Write(&text, rep, FormatText); err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(text.String(), "8 passed, 0 failed") || !strings.Contains(text.String(), "Array<Int>") {
		t.Fatalf("unexpected text report:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := Write(&js, rep, FormatJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil || decoded.Passed != rep.Passed {
		t.Fatalf("json report did not decode: %v", err)
	}

	var mp bytes.Buffer
	if err := Write(&mp, rep, FormatMsgpack); err != nil {
		t.Fatalf("msgpack: %v", err)
	}
	back, err := Decode(&mp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RunID != rep.RunID || back.Module != rep.Module || len(back.Results) != len(rep.Results) || back.Results[3] != rep.Results[3] {
		t.Fatalf("msgpack report did not survive decoding")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, " msgpack ": FormatMsgpack} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("yaml is not supported")
	}
}

func TestPadUsesDisplayWidth(t *testing.T) {
	if got := pad("配列", 6); got != "配列  " {
		t.Fatalf("wide runes take two columns, got %q", got)
	}
	if got := pad("abcdefghij", 6); got != "abc..." {
		t.Fatalf("long labels are truncated, got %q", got)
	}
}
