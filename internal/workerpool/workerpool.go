// Package workerpool runs a fixed number of goroutines over a job list and
// blocks until every job has been handled.
package workerpool

import (
	"context"
	"sync"
)

type job[T any] struct {
	index int
	value T
}

// Run applies fn to every job using at most workers goroutines and returns
// the results in job order. Jobs not yet started when ctx ends are skipped
// and keep the zero value of R.
func Run[T, R any](ctx context.Context, workers int, jobs []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan job[T])
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				results[j.index] = fn(ctx, j.value)
			}
		}()
	}

enqueue:
	for i, value := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case queue <- job[T]{index: i, value: value}:
		case <-ctx.Done():
			break enqueue
		}
	}
	close(queue)
	wg.Wait()
	return results
}
