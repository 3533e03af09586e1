// Package parallel provides chunked goroutine loops used for per-column
// statistics. Callers must only write to indices inside their own range.
package parallel

import (
	"runtime"
	"sync"
)

// ColumnThreshold is the column count at or below which column loops run
// sequentially; goroutine start-up costs more than it saves on narrow matrices.
const ColumnThreshold = 64

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end)
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Parallelize(items, fn)
}

// ForEachColumn calls fn once per column index in [0, cols), in parallel when
// cols exceeds ColumnThreshold.
func ForEachColumn(cols int, fn func(j int)) {
	ParallelizeWithThreshold(cols, ColumnThreshold, func(start, end int) {
		for j := start; j < end; j++ {
			fn(j)
		}
	})
}
