// Package session holds part of the framework's process-wide mutable state
// (§9 "Global mutable state") behind a single struct with thin accessors:
// the RNG, debug flags, and the live backend table. The id allocators stay
// where they were grounded (hlir.TensorRefID, symbol.ID, shape's
// fresh-dim/proj-class counters), owned by their defining package. The
// shape-inference environment is not held here either: callers create
// their own shape.Env with shape.NewEnv.
package session

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/config"
)

// Session owns the RNG, the debug-files flag and the backend table; every
// field is mutated only by the main thread (§5 "Shared resources").
type Session struct {
	mu sync.Mutex

	rng   *rand.Rand
	seed  int64
	debug bool

	backends map[string]backend.Backend
}

// New constructs a Session, resolving debug-files and an RNG seed from the
// environment/CLI per §6. A seed of 0 from args/env means "unseeded": the
// RNG gets the same default source (seed 1) as when the setting is absent —
// an explicit zero is not itself fixed state, it is the absence of one.
func New(args []string) *Session {
	s := &Session{
		debug:    config.DebugFiles(args),
		backends: map[string]backend.Backend{},
	}
	seedStr := config.String(args, "fixed_state_for_init", "")
	if seedStr != "" {
		var seed int64
		if _, err := fmt.Sscanf(seedStr, "%d", &seed); err == nil && seed != 0 {
			s.SeedRNG(seed)
			return s
		}
	}
	s.rng = rand.New(rand.NewSource(1))
	return s
}

// SeedRNG reseeds the session's global RNG (§5 "Global RNG: seeded once
// per process from fixed-state-for-init when set").
func (s *Session) SeedRNG(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.rng = rand.New(rand.NewSource(seed))
}

// Rand returns the session's RNG. Not used inside workers (§5) — callers
// draw host-side init values before a tensor is ever dispatched to a
// device.
func (s *Session) Rand() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// DebugFiles reports whether the compile pipeline should write
// per-kernel debug artifacts (§6 "Debug artifacts (opt-in)").
func (s *Session) DebugFiles() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debug
}

// SetDebugFiles overrides the debug-files flag, for callers that resolve
// it outside of New's args-based lookup.
func (s *Session) SetDebugFiles(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = on
}

// Backend resolves name to a Session-cached Backend, constructing and
// initializing a fresh one on first use (§6 "Backend selection": an
// unknown name is a hard error at construction; §9 "the backend device
// table" lives in the session, one instance per name for the session's
// lifetime).
func (s *Session) Backend(name string) (backend.Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if be, ok := s.backends[name]; ok {
		return be, nil
	}
	be, err := backend.New(name)
	if err != nil {
		return nil, err
	}
	if err := be.Initialize(); err != nil {
		return nil, fmt.Errorf("session: initializing backend %q: %w", name, err)
	}
	s.backends[name] = be
	return be, nil
}

// Shutdown tears down every backend this session constructed.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, be := range s.backends {
		if err := be.UnsafeCleanup(); err != nil {
			return fmt.Errorf("session: shutting down backend %q: %w", name, err)
		}
	}
	s.backends = map[string]backend.Backend{}
	return nil
}
