package session

import (
	"testing"

	_ "github.com/tensorforge/tensorforge/backend/cpu"
)

func TestNewDefaultsDebugFalse(t *testing.T) {
	s := New(nil)
	if s.DebugFiles() {
		t.Error("expected DebugFiles() false by default")
	}
}

func TestSeedRNGIsDeterministic(t *testing.T) {
	s1 := New(nil)
	s1.SeedRNG(42)
	s2 := New(nil)
	s2.SeedRNG(42)

	a := s1.Rand().Int63()
	b := s2.Rand().Int63()
	if a != b {
		t.Errorf("same seed produced different draws: %d vs %d", a, b)
	}
}

func TestBackendCachesByName(t *testing.T) {
	s := New(nil)
	be1, err := s.Backend("cpu-jit")
	if err != nil {
		t.Fatalf("Backend: %v", err)
	}
	be2, err := s.Backend("cpu-jit")
	if err != nil {
		t.Fatalf("Backend: %v", err)
	}
	if be1 != be2 {
		t.Error("expected Backend to cache and return the same instance")
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestBackendUnknownNameErrors(t *testing.T) {
	s := New(nil)
	if _, err := s.Backend("not-a-real-backend"); err == nil {
		t.Error("expected error for unknown backend name")
	}
}

func TestSetDebugFilesOverride(t *testing.T) {
	s := New(nil)
	s.SetDebugFiles(true)
	if !s.DebugFiles() {
		t.Error("expected DebugFiles() true after SetDebugFiles(true)")
	}
}
