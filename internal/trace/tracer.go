package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Implementations must be safe for concurrent
// use: parallel query evaluation emits from several goroutines.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go: straight to the output, into an
// in-memory ring dumped at exit, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

// DefaultRingSize is used when Config.RingSize is not positive.
const DefaultRingSize = 4096

var modeNames = map[StorageMode]string{
	ModeStream: "stream",
	ModeRing:   "ring",
	ModeBoth:   "both",
}

func (m StorageMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode parses a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(s)
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer conformctl attaches to a command.
type Config struct {
	Level  Level
	Mode   StorageMode
	Format Format // FormatAuto picks NDJSON for *.ndjson outputs, text otherwise

	// Output takes precedence over OutputPath. An empty OutputPath or "-"
	// means stderr.
	Output     io.Writer
	OutputPath string

	// RingSize bounds the ring in ModeRing and ModeBoth.
	RingSize int
}

// New builds the tracer described by cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}

	stream, err := openStream(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return newFanout(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func openStream(cfg Config) (*StreamTracer, error) {
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") {
			format = FormatNDJSON
		}
	}
	switch {
	case cfg.Output != nil:
		return NewStreamTracer(cfg.Output, cfg.Level, format), nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return NewStreamTracer(os.Stderr, cfg.Level, format), nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	st := NewStreamTracer(f, cfg.Level, format)
	st.closer = f
	return st, nil
}
