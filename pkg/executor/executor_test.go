package executor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"prompetition/pkg/executor"

	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsValue(t *testing.T) {
	e := executor.New(executor.Config{Workers: 1, Interval: 0}, nil)
	defer e.Shutdown()

	res, err := e.Submit(context.Background(), func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Equal(t, 42, res.Value)
}

func TestSubmitBatchPreservesOrder(t *testing.T) {
	e := executor.New(executor.Config{Workers: 2, Interval: 0}, nil)
	defer e.Shutdown()

	tasks := make([]executor.Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = func(context.Context) (any, error) { return i, nil }
	}

	results, err := e.SubmitBatch(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		require.True(t, res.OK())
		require.Equal(t, i, res.Value)
	}
}

func TestTaskFailureDoesNotAbortSiblings(t *testing.T) {
	e := executor.New(executor.Config{Workers: 2, Interval: 0}, nil)
	defer e.Shutdown()

	boom := errors.New("boom")
	tasks := []executor.Task{
		func(context.Context) (any, error) { return "a", nil },
		func(context.Context) (any, error) { return nil, boom },
		func(context.Context) (any, error) { return "c", nil },
	}

	results, err := e.SubmitBatch(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, results[0].OK())
	require.False(t, results[1].OK())
	require.ErrorIs(t, results[1].Err, boom)
	require.True(t, results[2].OK())
}

func TestTaskPanicIsRecorded(t *testing.T) {
	e := executor.New(executor.Config{Workers: 1, Interval: 0}, nil)
	defer e.Shutdown()

	res, err := e.Submit(context.Background(), func(context.Context) (any, error) {
		panic("kaput")
	})
	require.NoError(t, err)
	require.False(t, res.OK())
	require.Contains(t, res.Err.Error(), "kaput")
}

func TestSubmitRejectsOnFullQueue(t *testing.T) {
	e := executor.New(executor.Config{Workers: 1, Interval: 0, QueueSize: 1}, nil)
	defer e.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	go e.Submit(context.Background(), func(context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	// Occupies the single queue slot while the worker is busy.
	go e.Submit(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	})
	time.Sleep(50 * time.Millisecond)

	_, err := e.Submit(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, executor.ErrQueueFull)

	close(release)
}

func TestPacingSpacesCompletions(t *testing.T) {
	const interval = 100 * time.Millisecond
	e := executor.New(executor.Config{Workers: 1, Interval: interval}, nil)
	defer e.Shutdown()

	tasks := make([]executor.Task, 3)
	for i := range tasks {
		tasks[i] = func(context.Context) (any, error) { return nil, nil }
	}

	start := time.Now()
	_, err := e.SubmitBatch(context.Background(), tasks)
	require.NoError(t, err)

	// Instant tasks on one worker: the third cannot start before two
	// full pacing intervals have passed.
	require.GreaterOrEqual(t, time.Since(start), 2*interval)
}

func TestShutdownDrainsQueue(t *testing.T) {
	e := executor.New(executor.Config{Workers: 2, Interval: 0}, nil)

	var completed atomic.Int64
	tasks := make([]executor.Task, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) (any, error) {
			completed.Add(1)
			return nil, nil
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.SubmitBatch(context.Background(), tasks)
	}()
	<-done

	e.Shutdown()
	e.Shutdown() // idempotent
	require.Equal(t, int64(10), completed.Load())

	_, err := e.Submit(context.Background(), func(context.Context) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, executor.ErrClosed)
}

func TestSubmitHonorsContext(t *testing.T) {
	e := executor.New(executor.Config{Workers: 1, Interval: 0}, nil)
	defer e.Shutdown()

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	go e.Submit(context.Background(), func(context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Submit(ctx, func(context.Context) (any, error) { return nil, nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
