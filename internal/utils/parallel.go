package utils

import (
	"context"
	"errors"
	"sync"
)

// ParallelTask is one unit of work run by RunParallelTasks.
type ParallelTask func(ctx context.Context) error

// RunParallelTasks runs every task in its own goroutine and waits for all of
// them. The returned error joins every task failure; the first failure
// cancels the context passed to the remaining tasks.
func RunParallelTasks(ctx context.Context, tasks ...ParallelTask) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t ParallelTask) {
			defer wg.Done()
			if err := t(ctx); err != nil {
				errs[index] = err
				cancel()
			}
		}(i, task)
	}

	wg.Wait()
	return errors.Join(errs...)
}
