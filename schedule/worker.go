// Package schedule implements the multi-device scheduler (component H):
// per-device worker threads, the round-robin dispatch loop over static
// binding combinations, the pairwise-halving gradient-merge tree, and
// parameter broadcast (§4.H).
package schedule

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tensorforge/tensorforge/backend"
)

// Worker owns one device's single-slot mailbox and cooperative run loop
// (§4.H, §5 "Scheduling model": "one worker thread per device... spin
// until a task arrives, run it to completion, clear the slot"). The mailbox
// wake-up is edge-triggered on a buffered channel rather than a literal
// busy spin, the substitution §9 design notes explicitly allow ("a
// condition variable may be substituted for spin to reduce power, provided
// the wake-up is edge-triggered on task installation").
type Worker struct {
	Device backend.Device

	mu           sync.Mutex
	task         func() error
	lastErr      error
	keepSpinning bool
	wake         chan struct{}
	stopped      chan struct{}
}

// NewWorker starts a worker goroutine for d and returns immediately.
func NewWorker(d backend.Device) *Worker {
	w := &Worker{
		Device:       d,
		keepSpinning: true,
		wake:         make(chan struct{}, 1),
		stopped:      make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.stopped)
	for {
		<-w.wake
		w.mu.Lock()
		if !w.keepSpinning {
			w.mu.Unlock()
			return
		}
		task := w.task
		w.mu.Unlock()
		if task == nil {
			continue
		}
		err := task()
		w.mu.Lock()
		w.lastErr = err
		w.task = nil
		w.mu.Unlock()
	}
}

// Submit installs task into the mailbox (§4.H "submitting work installs a
// non-null task"). The slot must be clear — pair every Submit with a prior
// Await, since the mailbox holds exactly one task at a time.
func (w *Worker) Submit(task func() error) error {
	w.mu.Lock()
	if w.task != nil {
		w.mu.Unlock()
		return fmt.Errorf("schedule: worker %s: mailbox already occupied, Await before submitting again", w.Device)
	}
	if !w.keepSpinning {
		w.mu.Unlock()
		return fmt.Errorf("schedule: worker %s: submitted after shutdown", w.Device)
	}
	w.task = task
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Await spin-waits until the mailbox slot clears (§4.H "await(device)
// spin-waits until the slot is clear"; §5 "await is the only blocking
// primitive on the main thread"), returning the completed task's error.
func (w *Worker) Await() error {
	for {
		w.mu.Lock()
		clear := w.task == nil
		err := w.lastErr
		w.lastErr = nil
		w.mu.Unlock()
		if clear {
			return err
		}
		runtime.Gosched()
	}
}

// Stop sets keep_spinning false and joins the worker goroutine (§5
// "Cancellation and timeouts": "shutdown is cooperative: set every
// worker's keep_spinning to false, join the worker thread").
func (w *Worker) Stop() {
	w.mu.Lock()
	w.keepSpinning = false
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.stopped
}
