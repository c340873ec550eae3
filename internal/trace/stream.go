package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes formatted events to w through a buffer. The buffer is
// flushed whenever a driver phase ends, so a trace of an interrupted run
// still covers every finished phase.
type StreamTracer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	closer io.Closer // nil when the writer is not ours to close
	level  Level
	format Format
}

// NewStreamTracer streams events to w. w is never closed; use New with an
// OutputPath to have the tracer own its file.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{out: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	// write errors surface on Flush
	_, _ = t.out.Write(data) //nolint:errcheck
	if ev.Kind == KindSpanEnd && ev.Scope == ScopeDriver {
		_ = t.out.Flush() //nolint:errcheck
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Flush()
}

// Close flushes pending events and closes the output file if the tracer
// opened it.
func (t *StreamTracer) Close() error {
	err := t.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
		t.closer = nil
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
