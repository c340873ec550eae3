package trace

import (
	"fmt"
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory. It backs the ring and
// both storage modes and is dumped when the command finishes.
type RingTracer struct {
	mu      sync.Mutex
	buf     []Event
	next    int
	stored  int
	dropped uint64
	level   Level
}

// NewRingTracer creates a ring holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// Emit stores ev, overwriting the oldest event when the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
	if t.stored < len(t.buf) {
		t.stored++
	} else {
		t.dropped++
	}
	t.mu.Unlock()
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.stored)
	start := (t.next - t.stored + len(t.buf)) % len(t.buf)
	for i := range t.stored {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Dropped reports how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Dump writes the stored events to w. Text dumps start with a summary line.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	if format != FormatNDJSON {
		if _, err := fmt.Fprintf(w, "# trace ring: %d events, %d dropped\n", len(events), t.Dropped()); err != nil {
			return err
		}
	}
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
