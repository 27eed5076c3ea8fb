package spectral

import (
	"runtime"
	"sync"
)

// minChunk is the smallest number of rows worth a goroutine.
const minChunk = 32

// parallelFor splits [0, n) into contiguous chunks and runs fn on each
// concurrently. Small ranges run on the calling goroutine.
func parallelFor(n int, fn func(start, end int)) {
	workers := min(runtime.GOMAXPROCS(0), n/minChunk)
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}
