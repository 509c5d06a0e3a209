package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation.
type EnqueuerRepository interface {
	CreateJob(ctx context.Context, job *Job) error
}

// Enqueuer places jobs on lanes.
type Enqueuer struct {
	repo        EnqueuerRepository
	defaultLane string
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultLane: DefaultLane,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:        repo,
		defaultLane: options.defaultLane,
	}, nil
}

// Enqueue adds a new job. The payload is marshalled to JSON and its type
// name becomes the job kind unless WithKind overrides it. WithDelay or
// WithScheduledAt defer execution using the repository's native delayed
// delivery, so scheduled jobs survive a process restart.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		lane: e.defaultLane,
	}
	for _, opt := range opts {
		opt(options)
	}

	job, err := e.buildJob(payload, options)
	if err != nil {
		return err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create job %q on lane %q: %w", job.Kind, job.Lane, err)
	}

	return nil
}

func (e *Enqueuer) buildJob(payload any, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	kind := options.kind
	if kind == "" {
		kind = jobKind(payload)
	}

	scheduledAt := time.Now()
	if options.scheduledAt != nil {
		scheduledAt = *options.scheduledAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Job{
		ID:          uuid.New(),
		Lane:        options.lane,
		JobType:     JobTypeOneTime,
		Kind:        kind,
		Payload:     payloadBytes,
		Status:      JobStatusPending,
		RetryCount:  0,
		MaxRetries:  options.maxRetries,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}, nil
}
