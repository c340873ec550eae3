package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CPUPath:   filepath.Join(dir, "cpu.pprof"),
		MemPath:   filepath.Join(dir, "mem.pprof"),
		TracePath: filepath.Join(dir, "trace.out"),
	}
	s, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatalf("session with paths must be active")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, path := range []string{cfg.CPUPath, cfg.MemPath, cfg.TracePath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", filepath.Base(path), err)
		}
	}
}

func TestEmptyConfigIsInactive(t *testing.T) {
	s, err := Start(Config{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Active() {
		t.Fatalf("empty config must be inactive")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing", "cpu.pprof")
	if _, err := Start(Config{CPUPath: bad}); err == nil {
		t.Fatalf("expected error for unwritable path")
	}
}
