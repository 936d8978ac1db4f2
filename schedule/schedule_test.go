package schedule

import (
	"sync/atomic"
	"testing"

	"github.com/tensorforge/tensorforge/symbol"
)

func TestWorkerSubmitAwaitRunsTask(t *testing.T) {
	w := NewWorker(nil)
	defer w.Stop()

	var ran int64
	if err := w.Submit(func() error {
		atomic.AddInt64(&ran, 1)
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := w.Await(); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if ran != 1 {
		t.Errorf("expected task to run once, ran %d times", ran)
	}
}

func TestWorkerSubmitPropagatesError(t *testing.T) {
	w := NewWorker(nil)
	defer w.Stop()

	wantErr := errTestSentinel
	if err := w.Submit(func() error { return wantErr }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := w.Await(); err != wantErr {
		t.Errorf("Await returned %v, want %v", err, wantErr)
	}
}

func TestWorkerSubmitRejectsOccupiedMailbox(t *testing.T) {
	w := NewWorker(nil)
	defer w.Stop()

	block := make(chan struct{})
	if err := w.Submit(func() error { <-block; return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := w.Submit(func() error { return nil }); err == nil {
		t.Error("expected second Submit before Await to fail")
	}
	close(block)
	_ = w.Await()
}

func TestWorkerStopRejectsLateSubmit(t *testing.T) {
	w := NewWorker(nil)
	w.Stop()
	if err := w.Submit(func() error { return nil }); err == nil {
		t.Error("expected Submit after Stop to fail")
	}
}

type sentinelErr struct{}

func (sentinelErr) Error() string { return "sentinel" }

var errTestSentinel error = sentinelErr{}

func TestRoundRobinExhaustsCartesianProduct(t *testing.T) {
	a := symbol.NewBinding(symbol.New("a"), symbol.BoundedRange(3))
	b := symbol.NewBinding(symbol.New("b"), symbol.BoundedRange(2))
	bs := symbol.Empty().Extend(a).Extend(b)

	seen := map[[2]int]bool{}
	var dispatches, syncs int
	err := RoundRobin(bs, 2,
		func(pos, device int) error {
			seen[[2]int{a.Get(), b.Get()}] = true
			dispatches++
			return nil
		},
		func(count int) error {
			syncs++
			return nil
		},
	)
	if err != nil {
		t.Fatalf("RoundRobin: %v", err)
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct combinations, saw %d", len(seen))
	}
	if dispatches != 6 {
		t.Errorf("expected 6 dispatches, got %d", dispatches)
	}
	if syncs != 3 {
		t.Errorf("expected 3 syncs (n=2 over 6 dispatches), got %d", syncs)
	}
}

func TestRoundRobinPartialFinalRoundStillSyncs(t *testing.T) {
	a := symbol.NewBinding(symbol.New("a"), symbol.BoundedRange(5))
	bs := symbol.Empty().Extend(a)

	var syncCounts []int
	err := RoundRobin(bs, 3,
		func(pos, device int) error { return nil },
		func(count int) error {
			syncCounts = append(syncCounts, count)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("RoundRobin: %v", err)
	}
	if len(syncCounts) != 2 {
		t.Fatalf("expected 2 sync calls for 5 dispatches over n=3, got %d", len(syncCounts))
	}
	if syncCounts[0] != 3 || syncCounts[1] != 2 {
		t.Errorf("expected sync counts [3 2], got %v", syncCounts)
	}
}

func TestMergeScheduleEvenCount(t *testing.T) {
	pairs := MergeSchedule(4)
	// 4 -> 2 -> 1: first round pairs (2,0) (3,1); second round pairs (1,0).
	want := []MergePair{{From: 2, To: 0}, {From: 3, To: 1}, {From: 1, To: 0}}
	if len(pairs) != len(want) {
		t.Fatalf("got %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestMergeScheduleOddCountFoldsLeftover(t *testing.T) {
	pairs := MergeSchedule(3)
	dests := map[int]bool{}
	srcs := map[int]bool{}
	for _, p := range pairs {
		dests[p.To] = true
		srcs[p.From] = true
	}
	if !srcs[1] || !srcs[2] {
		t.Errorf("expected devices 1 and 2 to appear as merge sources, got %v", pairs)
	}
	if !dests[0] {
		t.Errorf("expected device 0 to receive a merge, got %v", pairs)
	}
}

func TestMergeScheduleTrivial(t *testing.T) {
	if got := MergeSchedule(1); got != nil {
		t.Errorf("expected no merge pairs for a single device, got %v", got)
	}
	if got := MergeSchedule(0); got != nil {
		t.Errorf("expected no merge pairs for zero devices, got %v", got)
	}
}
