// Package report evaluates fixture queries against frozen conformances and
// encodes the answers.
package report

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/fixture"
	"conform/internal/trace"
	"conform/internal/types"
)

// Result is the answer to one query.
type Result struct {
	Index       int    `json:"index" msgpack:"index"`
	Type        string `json:"type" msgpack:"type"`
	Protocol    string `json:"protocol" msgpack:"protocol"`
	Requirement string `json:"requirement" msgpack:"requirement"`
	Conformance string `json:"conformance,omitempty" msgpack:"conformance,omitempty"`
	Witness     string `json:"witness,omitempty" msgpack:"witness,omitempty"`
	Expect      string `json:"expect,omitempty" msgpack:"expect,omitempty"`
	Error       string `json:"error,omitempty" msgpack:"error,omitempty"`
	Passed      bool   `json:"passed" msgpack:"passed"`
}

// Report collects the results of a fixture run.
type Report struct {
	// RunID distinguishes reports of repeated runs, e.g. under check --watch.
	RunID        string   `json:"run_id" msgpack:"run_id"`
	Module       string   `json:"module" msgpack:"module"`
	Conformances int      `json:"conformances" msgpack:"conformances"`
	Derived      int      `json:"derived" msgpack:"derived"`
	Passed       int      `json:"passed" msgpack:"passed"`
	Failed       int      `json:"failed" msgpack:"failed"`
	Results      []Result `json:"results" msgpack:"results"`
}

// Options control evaluation.
type Options struct {
	// Jobs bounds parallel evaluation; 0 uses GOMAXPROCS, 1 is sequential.
	Jobs     int
	Progress ProgressSink
}

// Evaluate answers every query of m. Queries run in parallel only when all
// conformances are frozen; lazily resolved records are written on first
// read and must stay on one goroutine.
func Evaluate(ctx context.Context, m *fixture.Module, opts Options) (*Report, error) {
	sink := opts.Progress
	if sink == nil {
		sink = nopSink{}
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeModule, "evaluate", 0).WithExtra("module", m.Name)
	defer span.End("")

	for _, q := range m.Queries {
		sink.OnEvent(Event{Query: q.Index, Label: QueryLabel(m, q), Status: StatusQueued})
	}

	jobs := EffectiveJobs(m, opts.Jobs)

	results := make([]Result, len(m.Queries))
	if jobs == 1 || len(m.Queries) < 2 {
		for i, q := range m.Queries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = evaluateQuery(m, q, sink)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(m.Queries)))
		for i, q := range m.Queries {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				results[i] = evaluateQuery(m, q, sink)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	rep := &Report{
		RunID:        uuid.NewString(),
		Module:       m.Name,
		Conformances: len(m.Conformances()),
		Derived:      m.Lookup.Derived(),
		Results:      results,
	}
	for _, r := range results {
		if r.Passed {
			rep.Passed++
		} else {
			rep.Failed++
		}
	}
	span.WithExtra("run", rep.RunID).
		WithExtra("passed", fmt.Sprint(rep.Passed)).
		WithExtra("failed", fmt.Sprint(rep.Failed))
	return rep, nil
}

// QueryLabel renders q as "Type: Protocol.Requirement".
func QueryLabel(m *fixture.Module, q fixture.Query) string {
	return fmt.Sprintf("%s: %s", types.Label(m.Types, q.Type), m.Decls.QualifiedName(target(q)))
}

func target(q fixture.Query) decls.DeclID {
	if q.Assoc.IsValid() {
		return q.Assoc
	}
	return q.Requirement
}

// EffectiveJobs returns the worker count Evaluate uses for m. Modules with
// incomplete records are evaluated sequentially, since witnesses are filled on
// first lookup.
func EffectiveJobs(m *fixture.Module, requested int) int {
	if m.HasIncomplete() {
		return 1
	}
	if requested <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return requested
}

func evaluateQuery(m *fixture.Module, q fixture.Query, sink ProgressSink) (res Result) {
	start := time.Now()
	label := QueryLabel(m, q)
	res = Result{
		Index:       q.Index,
		Type:        types.Label(m.Types, q.Type),
		Protocol:    m.Decls.QualifiedName(q.Protocol),
		Requirement: m.Decls.Name(target(q)),
		Expect:      q.Expect,
	}
	finish := func(err error) {
		status := StatusDone
		if err != nil {
			status = StatusError
			res.Error = err.Error()
		}
		res.Passed = err == nil && (res.Expect == "" || res.Expect == res.Witness)
		sink.OnEvent(Event{Query: q.Index, Label: label, Status: status, Err: err, Elapsed: time.Since(start)})
	}

	sink.OnEvent(Event{Query: q.Index, Label: label, Stage: StageLookup, Status: StatusWorking})
	c, ok := m.Lookup.LookupConformance(q.Type, q.Protocol, m.Resolver)
	if !ok {
		finish(fmt.Errorf("%s does not conform to %s", res.Type, res.Protocol))
		return res
	}
	res.Conformance = conformance.Describe(m.Ctx, c)
	if c == nil {
		finish(fmt.Errorf("%s conforms abstractly; no witnesses to read", res.Type))
		return res
	}

	sink.OnEvent(Event{Query: q.Index, Label: label, Stage: StageWitness, Status: StatusWorking})
	witness, err := readWitness(m, c, q)
	res.Witness = witness
	finish(err)
	return res
}

// readWitness turns a violation raised while reading into an error.
func readWitness(m *fixture.Module, c conformance.Conformance, q fixture.Query) (label string, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var v *conformance.Violation
		if e, ok := r.(error); ok && errors.As(e, &v) {
			err = v
			return
		}
		panic(r)
	}()
	return m.WitnessLabel(c, q), nil
}
