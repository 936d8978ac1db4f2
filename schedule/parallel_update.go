package schedule

import (
	"fmt"

	"github.com/tensorforge/tensorforge/backend"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/symbol"
)

// ParallelUpdateConfig bundles the kernels and tensors a single
// synchronization step needs (§4.H steps a-f).
type ParallelUpdateConfig struct {
	// GradUpdates holds one compiled grad_update kernel per device, indexed
	// by device ordinal — each already bound to that device's context.
	GradUpdates []backend.Compiled
	// SGDUpdate is the sgd_update kernel, compiled against device 0's
	// context; it runs only there (§4.H "merge authority: device 0 is
	// canonical").
	SGDUpdate backend.Compiled
	// Bindings carries the round-robin's ranged static index cells.
	Bindings symbol.Bindings
	// MergeParams are the tensors accumulated into device 0 before
	// sgd_update runs (typically gradients).
	MergeParams []hlir.TensorRef
	// ValueParams are the tensors broadcast from device 0 back out after
	// sgd_update runs (the parameters sgd_update just moved).
	ValueParams []hlir.TensorRef
	// PostSync, if non-nil, runs after every full or partial round (§4.H
	// step f), receiving the number of dispatches just synchronized.
	PostSync func(count int) error
}

type mergeKey struct {
	from, to int
	tensor   hlir.TensorRefID
}

type broadcastKey struct {
	device int
	tensor hlir.TensorRefID
}

// ParallelUpdate drives one RoundRobin sweep of grad_update dispatches
// followed by the device-0-canonical synchronization sequence (§4.H):
//
//	a. parallel_merge: pairwise-halving-reduce every MergeParams tensor
//	   into device 0, via MergeSchedule(k).
//	b. run sgd_update on device 0.
//	c. await device 0.
//	d. needed_on_host fallback: if a merge step reports the backend cannot
//	   perform a device-to-device merge, copy through host memory instead.
//	e. broadcast ValueParams from device 0 to every other device.
//	f. call PostSync.
//
// Merge and broadcast kernels are compiled once per (from, to, tensor)
// triple and cached for the remaining rounds, since cfg.Bindings' ranged
// cells do not change which kernel a merge/broadcast needs — only the
// grad_update dispatch varies per round-robin position.
func ParallelUpdate(be backend.Backend, s *Scheduler, cfg ParallelUpdateConfig) error {
	n := s.NumDevices()
	if len(cfg.GradUpdates) != n {
		return fmt.Errorf("schedule: ParallelUpdate: %d grad_update kernels for %d devices", len(cfg.GradUpdates), n)
	}

	mergeCache := map[mergeKey]backend.Compiled{}
	broadcastCache := map[broadcastKey]backend.Compiled{}

	compiledMerge := func(tensor hlir.TensorRef, from, to int) (backend.Compiled, error) {
		key := mergeKey{from: from, to: to, tensor: tensor.ID}
		if c, ok := mergeCache[key]; ok {
			return c, nil
		}
		c, err := be.Merge(tensor, s.Contexts[to], hlir.Add, s.Contexts[from], fmt.Sprintf("merge_%d_%d", from, to))
		if err != nil {
			return nil, err
		}
		mergeCache[key] = c
		return c, nil
	}

	compiledBroadcast := func(tensor hlir.TensorRef, device int) (backend.Compiled, error) {
		key := broadcastKey{device: device, tensor: tensor.ID}
		if c, ok := broadcastCache[key]; ok {
			return c, nil
		}
		c, err := be.Merge(tensor, s.Contexts[device], hlir.Arg2, s.Contexts[0], fmt.Sprintf("broadcast_%d", device))
		if err != nil {
			return nil, err
		}
		broadcastCache[key] = c
		return c, nil
	}

	runOn := func(device int, c backend.Compiled) error {
		w, err := c.Schedule()
		if err != nil {
			return err
		}
		if err := w.Run(); err != nil {
			return err
		}
		return s.Workers[device].Submit(func() error { return be.Await(s.Workers[device].Device) })
	}

	fallbackThroughHost := func(tensor hlir.TensorRef, from, to int) error {
		if _, err := be.ToHost(s.Contexts[from], tensor); err != nil {
			return fmt.Errorf("schedule: needed_on_host: to_host from device %d: %w", from, err)
		}
		if _, err := be.FromHost(s.Contexts[to], tensor); err != nil {
			return fmt.Errorf("schedule: needed_on_host: from_host to device %d: %w", to, err)
		}
		return nil
	}

	step := func(pos, device int) error {
		return s.Workers[device].Submit(func() error {
			w, err := cfg.GradUpdates[device].Schedule()
			if err != nil {
				return err
			}
			return w.Run()
		})
	}

	sync := func(count int) error {
		// Only the devices RoundRobin actually dispatched grad_update to
		// this round (positions 0..count-1, per its pos%n device mapping)
		// hold gradients that need merging — awaiting, merging, or
		// broadcasting into the rest would double-count a stale gradient
		// or overwrite a value a device never just updated (§8 invariant
		// 7: a gradient sum is applied exactly once per sync).
		for d := 0; d < count; d++ {
			if err := s.Workers[d].Await(); err != nil {
				return err
			}
		}

		// a. parallel_merge, scoped to the count participating devices.
		for _, t := range cfg.MergeParams {
			for _, pair := range MergeSchedule(count) {
				c, err := compiledMerge(t, pair.From, pair.To)
				if err != nil {
					if err := fallbackThroughHost(t, pair.From, pair.To); err != nil {
						return err
					}
					continue
				}
				if err := runOn(pair.To, c); err != nil {
					return err
				}
				if err := s.Workers[pair.To].Await(); err != nil {
					return err
				}
			}
		}

		// b. sgd_update on device 0.
		w, err := cfg.SGDUpdate.Schedule()
		if err != nil {
			return err
		}
		if err := w.Run(); err != nil {
			return err
		}
		// c. await device 0.
		if err := be.Await(s.Workers[0].Device); err != nil {
			return err
		}

		// e. broadcast value params from device 0 to the other count-1
		// participating devices only.
		for _, t := range cfg.ValueParams {
			for d := 1; d < count; d++ {
				c, err := compiledBroadcast(t, d)
				if err != nil {
					if err := fallbackThroughHost(t, 0, d); err != nil {
						return err
					}
					continue
				}
				if err := runOn(d, c); err != nil {
					return err
				}
				if err := s.Workers[d].Await(); err != nil {
					return err
				}
			}
		}

		if cfg.PostSync != nil {
			return cfg.PostSync(count)
		}
		return nil
	}

	return RoundRobin(cfg.Bindings, n, step, sync)
}
