package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heraldhq/herald/pkg/queue"
)

// QueueStorage is the Postgres-backed job store for pkg/queue. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers and processes poll the same
// lanes without contention.
type QueueStorage struct {
	pool *pgxpool.Pool
}

var (
	_ queue.EnqueuerRepository  = (*QueueStorage)(nil)
	_ queue.WorkerRepository    = (*QueueStorage)(nil)
	_ queue.SchedulerRepository = (*QueueStorage)(nil)
)

// NewQueueStorage creates a QueueStorage on top of an established pool.
func NewQueueStorage(pool *pgxpool.Pool) *QueueStorage {
	return &QueueStorage{pool: pool}
}

const jobColumns = `id, lane, job_type, kind, payload, status, retry_count,
	max_retries, scheduled_at, locked_until, locked_by, processed_at, error, created_at`

// CreateJob inserts a pending job. A future scheduled_at defers it; due
// polling picks it up once the time passes, so deferred jobs survive
// restarts.
func (s *QueueStorage) CreateJob(ctx context.Context, job *queue.Job) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO queue_jobs
			(id, lane, job_type, kind, payload, status, retry_count, max_retries,
			 scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Lane, job.JobType, job.Kind, job.Payload, job.Status,
		job.RetryCount, job.MaxRetries, job.ScheduledAt, job.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// ClaimJob atomically locks and returns the earliest due job on the given
// lanes. Jobs whose lock expired are reclaimable.
func (s *QueueStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, lanes []string, lockDuration time.Duration) (*queue.Job, error) {
	var job queue.Job
	row := s.pool.QueryRow(ctx, `
		UPDATE queue_jobs
		SET status = 'processing',
			locked_until = now() + $1,
			locked_by = $2
		WHERE id = (
			SELECT id FROM queue_jobs
			WHERE lane = ANY($3)
				AND scheduled_at <= now()
				AND (status = 'pending'
					OR (status = 'processing' AND locked_until < now()))
			ORDER BY scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		lockDuration, workerID, lanes)
	if err := scanJob(row, &job); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNoJobToClaim
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return &job, nil
}

// CompleteJob marks a job completed and releases its lock.
func (s *QueueStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE queue_jobs
		SET status = 'completed',
			processed_at = now(),
			locked_until = NULL,
			locked_by = NULL
		WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	return nil
}

// FailJob records the error and increments retry_count. Jobs with retries
// remaining go back to pending.
func (s *QueueStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE queue_jobs
		SET retry_count = retry_count + 1,
			error = $1,
			locked_until = NULL,
			locked_by = NULL,
			status = CASE WHEN retry_count + 1 > max_retries
				THEN 'failed' ELSE 'pending' END
		WHERE id = $2`, errorMsg, jobID); err != nil {
		return fmt.Errorf("failed to fail job %s: %w", jobID, err)
	}
	return nil
}

// MoveToDeadLetter copies a job into queue_dead_jobs and deletes it from the
// active table, in one transaction.
func (s *QueueStorage) MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO queue_dead_jobs
			(id, job_id, lane, job_type, kind, payload, error, retry_count, failed_at, created_at)
		SELECT gen_random_uuid(), id, lane, job_type, kind, payload,
			COALESCE(error, ''), retry_count, now(), created_at
		FROM queue_jobs
		WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to copy job %s to dead letter: %w", jobID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM queue_jobs WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to delete dead job %s: %w", jobID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit dead letter move: %w", err)
	}
	return nil
}

// PendingJobByKind returns a pending job of the given kind, if any. The
// scheduler uses it to avoid double-creating a periodic run.
func (s *QueueStorage) PendingJobByKind(ctx context.Context, kind string) (*queue.Job, error) {
	var job queue.Job
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM queue_jobs
		WHERE kind = $1 AND status = 'pending'
		LIMIT 1`, kind)
	if err := scanJob(row, &job); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up pending job of kind %q: %w", kind, err)
	}
	return &job, nil
}

func scanJob(row pgx.Row, job *queue.Job) error {
	return row.Scan(
		&job.ID, &job.Lane, &job.JobType, &job.Kind, &job.Payload, &job.Status,
		&job.RetryCount, &job.MaxRetries, &job.ScheduledAt, &job.LockedUntil,
		&job.LockedBy, &job.ProcessedAt, &job.Error, &job.CreatedAt)
}
