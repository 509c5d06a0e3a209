package queue

import "time"

// EnqueuerOption configures an Enqueuer at construction.
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultLane string
}

// WithDefaultLane sets the lane used when Enqueue is called without WithLane.
func WithDefaultLane(lane string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if lane != "" {
			o.defaultLane = lane
		}
	}
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	lane        string
	kind        string
	delay       time.Duration
	scheduledAt *time.Time
	maxRetries  int8
}

// WithLane places the job on a specific lane.
func WithLane(lane string) EnqueueOption {
	return func(o *enqueueOptions) {
		if lane != "" {
			o.lane = lane
		}
	}
}

// WithKind overrides the handler kind derived from the payload type.
func WithKind(kind string) EnqueueOption {
	return func(o *enqueueOptions) {
		if kind != "" {
			o.kind = kind
		}
	}
}

// WithDelay defers the job by d from now.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithScheduledAt defers the job to an absolute time. Takes precedence over
// WithDelay when both are given.
func WithScheduledAt(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &t
	}
}

// WithMaxRetries sets queue-level redelivery attempts for unexpected handler
// errors. Herald's delivery jobs keep this at zero: the delivery retry
// policy schedules its own follow-up jobs.
func WithMaxRetries(n int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}
