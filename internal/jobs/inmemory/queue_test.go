package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.DigestJob {
	t.Helper()
	var got *jobs.DigestJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1))

	var seen atomic.Value
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		seen.Store(job.(*jobs.DigestJob).Recipient)
		return nil
	}))

	job := &jobs.DigestJob{Recipient: "me@example.com", DigestDate: "2024-06-10"}
	require.NoError(t, q.PublishDigest(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, "me@example.com", seen.Load())

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithBackoff(time.Millisecond))

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("gmail unavailable")
	}))

	job := &jobs.DigestJob{Recipient: "me@example.com", MaxRetries: 2}
	require.NoError(t, q.PublishDigest(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "gmail unavailable", failed.Error)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_RetrySucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2), WithBackoff(time.Millisecond))

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))

	job := &jobs.DigestJob{Recipient: "me@example.com"}
	require.NoError(t, q.PublishDigest(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, done.RetryCount)
	assert.Empty(t, done.Error)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "closing twice is a no-op")

	assert.Error(t, q.PublishDigest(context.Background(), &jobs.DigestJob{}))
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}

func TestQueue_PublishHonoursContext(t *testing.T) {
	q := NewQueue(0, nil)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.PublishDigest(ctx, &jobs.DigestJob{})
	assert.ErrorIs(t, err, context.Canceled)
}
