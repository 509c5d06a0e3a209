package queue

import (
	"log/slog"
	"time"
)

// WorkerOption configures a Worker at construction.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	lanes             []string
	pullInterval      time.Duration
	lockTimeout       time.Duration
	maxConcurrentJobs int
	logger            *slog.Logger
}

// WithLanes sets the lanes this worker polls.
func WithLanes(lanes ...string) WorkerOption {
	return func(o *workerOptions) {
		if len(lanes) > 0 {
			o.lanes = lanes
		}
	}
}

// WithPullInterval sets how often the worker polls for due jobs.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout bounds how long a claimed job may run before its lock
// expires and another worker may reclaim it.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithMaxConcurrentJobs sets the size of the worker's concurrency pool.
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

// WithLogger sets the worker's logger.
func WithLogger(log *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if log != nil {
			o.logger = log
		}
	}
}
