package schedule

import (
	"fmt"

	"github.com/tensorforge/tensorforge/backend"
)

// Scheduler constructs N = min(num_backend_devices(), requested) worker
// threads and a context per device (§4.H).
type Scheduler struct {
	Backend  backend.Backend
	Workers  []*Worker
	Contexts []backend.Context
}

// New initializes the backend (if not already) and spins up one worker and
// one context per device, up to requested (0 or negative means "use every
// device the backend reports").
func New(be backend.Backend, requested int) (*Scheduler, error) {
	if !be.IsInitialized() {
		if err := be.Initialize(); err != nil {
			return nil, fmt.Errorf("schedule: initializing backend %s: %w", be.Name(), err)
		}
	}
	n := be.NumDevices()
	if requested > 0 && requested < n {
		n = requested
	}
	if n <= 0 {
		return nil, fmt.Errorf("schedule: backend %s reports no devices", be.Name())
	}

	s := &Scheduler{Backend: be, Workers: make([]*Worker, n), Contexts: make([]backend.Context, n)}
	for i := 0; i < n; i++ {
		dev, err := be.GetDevice(i)
		if err != nil {
			return nil, fmt.Errorf("schedule: device %d: %w", i, err)
		}
		ctx, err := be.Init(dev)
		if err != nil {
			return nil, fmt.Errorf("schedule: init context for device %d: %w", i, err)
		}
		s.Workers[i] = NewWorker(dev)
		s.Contexts[i] = ctx
	}
	return s, nil
}

// NumDevices returns the scheduler's worker/context count.
func (s *Scheduler) NumDevices() int { return len(s.Workers) }

// Shutdown stops every worker and releases backend resources (§5
// "Shutdown is cooperative... then call the backend's unsafe_cleanup").
func (s *Scheduler) Shutdown() error {
	for _, w := range s.Workers {
		w.Stop()
	}
	for _, ctx := range s.Contexts {
		if err := s.Backend.Finalize(ctx); err != nil {
			return fmt.Errorf("schedule: finalize: %w", err)
		}
	}
	return s.Backend.UnsafeCleanup()
}
