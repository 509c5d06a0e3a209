package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the storage operations the scheduler needs.
type SchedulerRepository interface {
	// CreateJob creates a new job in storage.
	CreateJob(ctx context.Context, job *Job) error

	// PendingJobByKind returns a pending job of the given kind, if any.
	// Used to avoid double-scheduling a periodic job across restarts.
	PendingJobByKind(ctx context.Context, kind string) (*Job, error)
}

// Scheduler creates periodic jobs on their schedule. It does not execute
// them: a Worker with a matching periodic handler picks them up, so periodic
// work gets the same locking, retry and dead-letter treatment as one-shot
// jobs.
type Scheduler struct {
	repo     SchedulerRepository
	jobs     map[string]*scheduledJob
	mu       sync.RWMutex
	interval time.Duration
	logger   *slog.Logger
}

type scheduledJob struct {
	kind            string
	schedule        Schedule
	lane            string
	lastScheduledAt *time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	logger        *slog.Logger
}

// WithCheckInterval sets how often the scheduler evaluates registered jobs.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if log != nil {
			o.logger = log
		}
	}
}

// NewScheduler creates a periodic job scheduler.
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		jobs:     make(map[string]*scheduledJob),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// Register adds a periodic job identified by kind, running on the given
// schedule and lane.
func (s *Scheduler) Register(kind string, schedule Schedule, lane string) error {
	if schedule == nil {
		return ErrNoScheduleSpecified
	}
	if lane == "" {
		lane = DefaultLane
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[kind]; exists {
		return ErrJobAlreadyRegistered
	}

	s.jobs[kind] = &scheduledJob{
		kind:     kind,
		schedule: schedule,
		lane:     lane,
	}

	s.logger.Info("registered periodic job",
		slog.String("kind", kind),
		slog.String("lane", lane),
		slog.String("schedule", schedule.String()))

	return nil
}

// Start runs the scheduler until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()

	if jobCount == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkJobs(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.checkJobs(ctx)
		}
	}
}

func (s *Scheduler) checkJobs(ctx context.Context) {
	s.mu.RLock()
	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, job := range jobs {
		if err := s.scheduleIfDue(ctx, job, now); err != nil {
			s.logger.Error("failed to schedule periodic job",
				slog.String("kind", job.kind),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) scheduleIfDue(ctx context.Context, job *scheduledJob, now time.Time) error {
	var nextRun time.Time
	if job.lastScheduledAt == nil {
		nextRun = job.schedule.Next(now)
	} else {
		nextRun = job.schedule.Next(*job.lastScheduledAt)
		if nextRun.After(now.Add(s.interval)) {
			return nil
		}
	}

	// A pending row of this kind means a previous scheduler instance (or an
	// earlier tick) already created the upcoming run.
	existing, err := s.repo.PendingJobByKind(ctx, job.kind)
	if err == nil && existing != nil {
		s.updateJobState(job.kind, existing.ScheduledAt)
		return nil
	}

	created := &Job{
		ID:          uuid.New(),
		Lane:        job.lane,
		JobType:     JobTypePeriodic,
		Kind:        job.kind,
		Payload:     json.RawMessage(`{}`),
		Status:      JobStatusPending,
		ScheduledAt: nextRun,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateJob(ctx, created); err != nil {
		return fmt.Errorf("failed to create periodic job: %w", err)
	}

	s.updateJobState(job.kind, nextRun)

	s.logger.Info("scheduled periodic job",
		slog.String("kind", job.kind),
		slog.Time("scheduled_for", nextRun))

	return nil
}

func (s *Scheduler) updateJobState(kind string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[kind]; ok {
		job.lastScheduledAt = &at
	}
}
