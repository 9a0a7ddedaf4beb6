package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallelTasksRunsEveryTask(t *testing.T) {
	var ran atomic.Int32
	tasks := make([]ParallelTask, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			ran.Add(1)
			return nil
		}
	}

	require.NoError(t, RunParallelTasks(context.Background(), tasks...))
	assert.Equal(t, int32(10), ran.Load())
}

func TestRunParallelTasksJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	err := RunParallelTasks(context.Background(),
		func(context.Context) error { return first },
		func(context.Context) error { return nil },
		func(context.Context) error { return second },
	)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestRunParallelTasksCancelsOnFailure(t *testing.T) {
	boom := errors.New("boom")

	err := RunParallelTasks(context.Background(),
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return errors.New("not cancelled")
			}
		},
	)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunParallelTasksEmpty(t *testing.T) {
	assert.NoError(t, RunParallelTasks(context.Background()))
}
