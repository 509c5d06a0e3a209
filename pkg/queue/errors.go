package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrHandlerNotFound is returned when no handler is registered for a job kind
	ErrHandlerNotFound = errors.New("no handler registered for job kind")

	// ErrNoHandlers is returned when a worker is started with no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrNoJobToClaim is returned by repositories when no job is due
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobAlreadyRegistered is returned when registering a duplicate periodic job
	ErrJobAlreadyRegistered = errors.New("periodic job already registered")

	// ErrSchedulerNotConfigured is returned when a scheduler has no registered jobs
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered jobs")

	// ErrNoScheduleSpecified is returned when a periodic job is registered without a schedule
	ErrNoScheduleSpecified = errors.New("no schedule specified for periodic job")
)
