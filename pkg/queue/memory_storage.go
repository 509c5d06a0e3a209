package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory job store implementing the enqueuer, worker
// and scheduler repositories. It is intended for tests and local development;
// production deployments use the Postgres-backed store.
type MemoryStorage struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*Job
	deadJobs map[uuid.UUID]*DeadJob
}

var (
	_ EnqueuerRepository  = (*MemoryStorage)(nil)
	_ WorkerRepository    = (*MemoryStorage)(nil)
	_ SchedulerRepository = (*MemoryStorage)(nil)
)

// NewMemoryStorage creates an empty in-memory job store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		jobs:     make(map[uuid.UUID]*Job),
		deadJobs: make(map[uuid.UUID]*DeadJob),
	}
}

// CreateJob stores a new job.
func (s *MemoryStorage) CreateJob(_ context.Context, job *Job) error {
	if job == nil {
		return ErrPayloadNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// ClaimJob locks and returns the earliest due pending job on the given lanes.
// Expired locks are treated as reclaimable, matching the Postgres store.
func (s *MemoryStorage) ClaimJob(_ context.Context, workerID uuid.UUID, lanes []string, lockDuration time.Duration) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var candidate *Job
	for _, job := range s.jobs {
		if !slices.Contains(lanes, job.Lane) {
			continue
		}
		if job.ScheduledAt.After(now) {
			continue
		}

		claimable := job.Status == JobStatusPending ||
			(job.Status == JobStatusProcessing && job.LockedUntil != nil && job.LockedUntil.Before(now))
		if !claimable {
			continue
		}

		if candidate == nil || job.ScheduledAt.Before(candidate.ScheduledAt) {
			candidate = job
		}
	}

	if candidate == nil {
		return nil, ErrNoJobToClaim
	}

	lockedUntil := now.Add(lockDuration)
	candidate.Status = JobStatusProcessing
	candidate.LockedUntil = &lockedUntil
	candidate.LockedBy = &workerID

	cp := *candidate
	return &cp, nil
}

// CompleteJob marks a job completed and releases its lock.
func (s *MemoryStorage) CompleteJob(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNoJobToClaim
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.ProcessedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil
	return nil
}

// FailJob records the error and increments the retry count. Jobs with
// retries remaining go back to pending for immediate reclaim.
func (s *MemoryStorage) FailJob(_ context.Context, jobID uuid.UUID, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNoJobToClaim
	}

	job.RetryCount++
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	if job.RetryCount > job.MaxRetries {
		job.Status = JobStatusFailed
	} else {
		job.Status = JobStatusPending
	}
	return nil
}

// MoveToDeadLetter parks a failed job in the dead-letter store and removes
// it from the active set.
func (s *MemoryStorage) MoveToDeadLetter(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNoJobToClaim
	}

	errMsg := ""
	if job.Error != nil {
		errMsg = *job.Error
	}

	dead := &DeadJob{
		ID:         uuid.New(),
		JobID:      job.ID,
		Lane:       job.Lane,
		JobType:    job.JobType,
		Kind:       job.Kind,
		Payload:    job.Payload,
		Error:      errMsg,
		RetryCount: job.RetryCount,
		FailedAt:   time.Now(),
		CreatedAt:  job.CreatedAt,
	}
	s.deadJobs[dead.ID] = dead
	delete(s.jobs, jobID)
	return nil
}

// PendingJobByKind returns a pending job of the given kind, if any.
func (s *MemoryStorage) PendingJobByKind(_ context.Context, kind string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Kind == kind && job.Status == JobStatusPending {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

// JobsInLane returns a snapshot of all active jobs on the given lane,
// ordered by scheduled time. Test helper.
func (s *MemoryStorage) JobsInLane(lane string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Job
	for _, job := range s.jobs {
		if job.Lane == lane {
			out = append(out, *job)
		}
	}
	slices.SortFunc(out, func(a, b Job) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
	return out
}

// Job returns a snapshot of a single job by id.
func (s *MemoryStorage) Job(jobID uuid.UUID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// DeadJobs returns a snapshot of the dead-letter store.
func (s *MemoryStorage) DeadJobs() []DeadJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DeadJob, 0, len(s.deadJobs))
	for _, dead := range s.deadJobs {
		out = append(out, *dead)
	}
	slices.SortFunc(out, func(a, b DeadJob) int {
		return a.FailedAt.Compare(b.FailedAt)
	})
	return out
}
