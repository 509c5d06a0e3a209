package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/pkg/queue"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()

		s, err := queue.NewScheduler(nil)
		require.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, s)
	})

	t.Run("start without jobs", func(t *testing.T) {
		t.Parallel()

		s, err := queue.NewScheduler(queue.NewMemoryStorage())
		require.NoError(t, err)

		err = s.Start(context.Background())
		require.ErrorIs(t, err, queue.ErrSchedulerNotConfigured)
	})
}

func TestSchedulerRegister(t *testing.T) {
	t.Parallel()

	s, err := queue.NewScheduler(queue.NewMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, s.Register("dlq_report", queue.Every(time.Hour), queue.DefaultLane))

	err = s.Register("dlq_report", queue.Every(time.Hour), queue.DefaultLane)
	require.ErrorIs(t, err, queue.ErrJobAlreadyRegistered)

	err = s.Register("no_schedule", nil, queue.DefaultLane)
	require.ErrorIs(t, err, queue.ErrNoScheduleSpecified)
}

func TestSchedulerCreatesJob(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	s, err := queue.NewScheduler(storage, queue.WithCheckInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.Register("dlq_report", queue.Every(time.Second), "maintenance"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(storage.JobsInLane("maintenance")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	jobs := storage.JobsInLane("maintenance")
	assert.Equal(t, "dlq_report", jobs[0].Kind)
	assert.Equal(t, queue.JobTypePeriodic, jobs[0].JobType)
	assert.Equal(t, queue.JobStatusPending, jobs[0].Status)

	// A pending run already exists, so further ticks must not duplicate it.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, storage.JobsInLane("maintenance"), 1)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
