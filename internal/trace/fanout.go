package trace

import "errors"

// fanout emits every event to a stream tracer and a ring at once.
type fanout struct {
	tracers []Tracer
	level   Level
}

func newFanout(level Level, tracers ...Tracer) *fanout {
	return &fanout{tracers: tracers, level: level}
}

func (t *fanout) Emit(ev *Event) {
	for _, tr := range t.tracers {
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *fanout) Flush() error {
	errs := make([]error, 0, len(t.tracers))
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *fanout) Close() error {
	errs := make([]error, 0, len(t.tracers))
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *fanout) Level() Level  { return t.level }
func (t *fanout) Enabled() bool { return t.level > LevelOff }

// RingOf returns the ring buffer behind t, if it keeps one.
func RingOf(t Tracer) (*RingTracer, bool) {
	switch tr := t.(type) {
	case *RingTracer:
		return tr, true
	case *fanout:
		for _, inner := range tr.tracers {
			if ring, ok := RingOf(inner); ok {
				return ring, true
			}
		}
	}
	return nil, false
}
