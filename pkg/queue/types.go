package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultLane is used when no lane is specified on enqueue.
const DefaultLane = "default"

// JobType distinguishes one-shot jobs from scheduler-created periodic jobs.
type JobType string

const (
	JobTypeOneTime  JobType = "one-time"
	JobTypePeriodic JobType = "periodic"
)

// JobStatus represents the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the unit of work carried by a lane. Payload is opaque JSON; Kind
// names the handler that consumes it (derived from the payload type).
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Lane        string          `json:"lane"`
	JobType     JobType         `json:"job_type"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      JobStatus       `json:"status"`
	RetryCount  int8            `json:"retry_count"`
	MaxRetries  int8            `json:"max_retries"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID      `json:"locked_by,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DeadJob is a job that exhausted its queue-level retries, parked for
// manual inspection and recovery.
//
// Note this is the queue's own dead-letter store, distinct from Herald's
// delivery DLQ: a DeadJob means the handler kept erroring unexpectedly,
// while a delivery DLQ entry is a deliberate outcome of the retry policy.
type DeadJob struct {
	ID         uuid.UUID       `json:"id"`
	JobID      uuid.UUID       `json:"job_id"`
	Lane       string          `json:"lane"`
	JobType    JobType         `json:"job_type"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error"`
	RetryCount int8            `json:"retry_count"`
	FailedAt   time.Time       `json:"failed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}
