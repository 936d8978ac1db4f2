package precision

import (
	"runtime"
	"sync"
)

// fillConfig controls FillFromFloat's goroutine fan-out, adapted from the
// teacher's internal/parallel.Config/DefaultConfig (chunked goroutine range
// with a minimum chunk size to avoid fan-out overhead on small buffers).
type fillConfig struct {
	enabled      bool
	numWorkers   int
	minChunkSize int
}

func defaultFillConfig() fillConfig {
	n := runtime.NumCPU()
	return fillConfig{enabled: n > 1, numWorkers: n, minChunkSize: 4096}
}

// parallelRange runs f(i) for i in [0, n), fanning out across cfg.numWorkers
// goroutines in contiguous chunks once n clears cfg.minChunkSize — the same
// chunked-WaitGroup shape as the teacher's internal/parallel.For, adapted
// here to drive Buffer.FillFromFloat's per-element writes instead of the
// teacher's per-op tensor loops.
func parallelRange(n int, f func(i int), cfg fillConfig) {
	if !cfg.enabled || n < cfg.minChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.numWorkers-1)/cfg.numWorkers, cfg.minChunkSize)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
