// Package parallel runs data-parallel loops over independent items.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Workers resolves a requested worker count: values below 1 mean one worker
// per CPU core.
func Workers(n int) int {
	if n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// Parallelize divides items into at most workers contiguous ranges and runs fn
// on each range (start, end) in its own goroutine. workers < 1 uses one
// worker per CPU core. It returns when every range is done.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Workers(workers)
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
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

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold.
// If below threshold, normal sequential processing is performed.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, 0, fn)
}

// Progress is called before each row with the row about to be processed and
// the total row count. Returning false stops the loop.
type Progress func(row, rows int) bool

// ForRows visits every (row, col) pair. Rows run one after another; the
// columns of a row are split across workers. Cancellation is checked once per
// row, through ctx and progress. A stopped loop returns an error wrapping
// errors.ErrCancelled; rows already visited keep whatever fn wrote.
//
// fn must not touch state owned by another (row, col) pair.
func ForRows(ctx context.Context, rows, cols, workers int, progress Progress, fn func(row, col int)) error {
	for row := 0; row < rows; row++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(errors.ErrCancelled, "row %d of %d: %v", row, rows, err)
		}
		if progress != nil && !progress(row, rows) {
			return errors.Wrapf(errors.ErrCancelled, "row %d of %d: stopped by progress callback", row, rows)
		}

		Parallelize(cols, workers, func(start, end int) {
			for col := start; col < end; col++ {
				fn(row, col)
			}
		})
	}
	if progress != nil {
		progress(rows, rows)
	}
	return nil
}
