package utils

import (
	"context"
	"os"
	"strconv"
	"sync"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// GetWorkerLimit returns RECALL_WORKERS from the environment or DefaultWorkers.
func GetWorkerLimit() int {
	val := os.Getenv("RECALL_WORKERS")
	if val == "" {
		return DefaultWorkers
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultWorkers
	}
	return limit
}

// Worker processes a single item of a WorkerPool.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a Worker over a slice of items with bounded concurrency.
//
// Results and errors are returned in input order. Items not yet started
// when ctx is cancelled get ctx.Err(). A panicking worker yields a
// *PanicError for its item and the pool keeps going.
//
// Example:
//
//	pool := NewWorkerPool(4, func(ctx context.Context, id string) ([]string, error) {
//	    return graph.Expand(ctx, id, opts)
//	})
//	results, errs := pool.ProcessItems(ctx, seedIDs)
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = GetWorkerLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

// ProcessItems processes items using the worker pool.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	results := make([]R, len(items))
	errs := make([]error, len(items))

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				func() {
					defer RecoverWithCallback(func(err error) {
						errs[i] = err
					})
					results[i], errs[i] = wp.worker(ctx, items[i])
				}()
			}
		}()
	}

	wg.Wait()
	return results, errs
}

// Batch splits items into consecutive slices of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 10
	}

	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
