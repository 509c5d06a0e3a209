package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/pkg/queue"
)

type workerPayload struct {
	Value int `json:"value"`
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		w, err := queue.NewWorker(nil)
		require.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, w)
	})

	t.Run("start without handlers", func(t *testing.T) {
		t.Parallel()

		w, err := queue.NewWorker(queue.NewMemoryStorage())
		require.NoError(t, err)

		err = w.Start(context.Background())
		require.ErrorIs(t, err, queue.ErrNoHandlers)
	})
}

func TestWorkerProcessesJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	var got atomic.Int64
	w, err := queue.NewWorker(storage, queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterHandler(queue.NewJobHandler(func(_ context.Context, p workerPayload) error {
		got.Store(int64(p.Value))
		return nil
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 42}))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.Eventually(t, func() bool {
		return got.Load() == 42
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		jobs := storage.JobsInLane(queue.DefaultLane)
		return len(jobs) == 1 && jobs[0].Status == queue.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerRespectsLanes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	var handled atomic.Int64
	w, err := queue.NewWorker(storage,
		queue.WithLanes("delivery-high"),
		queue.WithPullInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	w.RegisterHandler(queue.NewJobHandler(func(_ context.Context, _ workerPayload) error {
		handled.Add(1)
		return nil
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 1}, queue.WithLane("delivery-normal")))
	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 2}, queue.WithLane("delivery-high")))

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The normal-lane job stays untouched.
	time.Sleep(50 * time.Millisecond)
	jobs := storage.JobsInLane("delivery-normal")
	require.Len(t, jobs, 1)
	assert.Equal(t, queue.JobStatusPending, jobs[0].Status)
}

func TestWorkerRetriesAndDeadLetters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	var attempts atomic.Int64
	w, err := queue.NewWorker(storage, queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterHandler(queue.NewJobHandler(func(_ context.Context, _ workerPayload) error {
		attempts.Add(1)
		return errors.New("boom")
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 1}, queue.WithMaxRetries(2)))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.Eventually(t, func() bool {
		return len(storage.DeadJobs()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Initial attempt plus two retries.
	assert.Equal(t, int64(3), attempts.Load())

	dead := storage.DeadJobs()
	require.Len(t, dead, 1)
	assert.Equal(t, "boom", dead[0].Error)
	assert.Empty(t, storage.JobsInLane(queue.DefaultLane))
}

func TestWorkerDeadLettersUnknownKind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	w, err := queue.NewWorker(storage, queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterHandler(queue.NewPeriodicJobHandler("unrelated", func(context.Context) error {
		return nil
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 1}))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.Eventually(t, func() bool {
		return len(storage.DeadJobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	dead := storage.DeadJobs()
	assert.Contains(t, dead[0].Error, "no handler registered")
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	w, err := queue.NewWorker(storage, queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterHandler(queue.NewJobHandler(func(_ context.Context, _ workerPayload) error {
		panic("handler bug")
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 1}))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.Eventually(t, func() bool {
		return len(storage.DeadJobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	dead := storage.DeadJobs()
	assert.Contains(t, dead[0].Error, "panic in handler")
}

func TestWorkerStopWaitsForActiveJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()

	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	started := make(chan struct{})
	var finished atomic.Bool
	w, err := queue.NewWorker(storage, queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	w.RegisterHandler(queue.NewJobHandler(func(_ context.Context, _ workerPayload) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	}))

	require.NoError(t, enq.Enqueue(ctx, workerPayload{Value: 1}))
	require.NoError(t, w.Start(ctx))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	require.NoError(t, w.Stop())
	assert.True(t, finished.Load())
}

func TestWorkerDoubleStart(t *testing.T) {
	t.Parallel()

	w, err := queue.NewWorker(queue.NewMemoryStorage())
	require.NoError(t, err)
	w.RegisterHandler(queue.NewPeriodicJobHandler("noop", func(context.Context) error { return nil }))

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	err = w.Start(context.Background())
	require.Error(t, err)
}
