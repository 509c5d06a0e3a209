package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the storage operations a worker needs.
type WorkerRepository interface {
	// ClaimJob atomically claims the next due job on one of the lanes,
	// locking it for lockDuration. Returns ErrNoJobToClaim when idle.
	ClaimJob(ctx context.Context, workerID uuid.UUID, lanes []string, lockDuration time.Duration) (*Job, error)

	// CompleteJob marks a job as completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID) error

	// FailJob records the error and increments the retry count. Jobs with
	// retries remaining return to pending.
	FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error

	// MoveToDeadLetter parks a job that exhausted queue-level retries.
	MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error
}

// Worker polls one or more lanes and dispatches claimed jobs to registered
// handlers through a bounded concurrency pool. Run one Worker per priority
// tier: Herald gives the high lane its own worker with a larger pool so
// urgent signals are never queued behind bulk traffic.
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	lanes    []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // serializes stopping state and WaitGroup adds

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a worker for the given repository.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		lanes:             []string{DefaultLane},
		pullInterval:      time.Second,
		lockTimeout:       5 * time.Minute,
		maxConcurrentJobs: 1,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		lanes:        options.lanes,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentJobs),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a job handler by its kind.
func (w *Worker) RegisterHandler(handler Handler) {
	if handler == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[handler.Kind()] = handler
}

// RegisterHandlers registers multiple handlers.
func (w *Worker) RegisterHandlers(handlers ...Handler) {
	for _, h := range handlers {
		w.RegisterHandler(h)
	}
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("queue worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("lanes", w.lanes),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop shuts the worker down cooperatively: polling stops immediately and
// in-flight jobs run to completion.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("queue worker stopping, waiting for active jobs",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("queue worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main polling loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// stopMu guards against adding to the WaitGroup after
				// Stop() has begun waiting on it.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(); err != nil && !errors.Is(err, ErrHandlerNotFound) {
						w.logger.Error("failed to process job",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				// All slots busy; skip this tick.
			}
		}
	}
}

func (w *Worker) pullAndProcess() error {
	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.lanes, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("kind", job.Kind),
		slog.String("lane", job.Lane))

	return w.processJob(job)
}

func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	// A panicking handler is a programmer error; record it as a failure so
	// the job follows the normal retry/dead-letter path instead of staying
	// locked until the lock expires.
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("job handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.String("kind", job.Kind),
				slog.Any("panic", r))
			_ = w.handleJobFailure(job, retErr, time.Since(start))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[job.Kind]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(job)
	}

	// The job context is detached from the worker lifecycle so graceful
	// shutdown lets in-flight jobs finish; the lock timeout bounds them.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := handler.Handle(ctx, job.Payload)
	duration := time.Since(start)

	if err != nil {
		return w.handleJobFailure(job, err, duration)
	}

	return w.handleJobSuccess(job, duration)
}

// handleMissingHandler parks jobs with no registered handler directly in the
// dead-letter store: retries cannot help until the handler code is deployed,
// at which point an operator can requeue from there.
func (w *Worker) handleMissingHandler(job *Job) error {
	w.logger.Error("no handler registered for job kind",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("kind", job.Kind))

	errorMsg := "no handler registered for job kind: " + job.Kind
	if err := w.repo.FailJob(w.ctx, job.ID, errorMsg); err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", job.ID, err)
	}

	if err := w.repo.MoveToDeadLetter(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to move job %s to dead letter: %w", job.ID, err)
	}

	return ErrHandlerNotFound
}

func (w *Worker) handleJobFailure(job *Job, execErr error, duration time.Duration) error {
	w.logger.Error("job failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("kind", job.Kind),
		slog.Int("retry_count", int(job.RetryCount)),
		slog.Int("max_retries", int(job.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if err := w.repo.FailJob(w.ctx, job.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to update job %s status to failed: %w", job.ID, err)
	}

	if job.RetryCount >= job.MaxRetries {
		if err := w.repo.MoveToDeadLetter(w.ctx, job.ID); err != nil {
			return fmt.Errorf("failed to move job %s to dead letter after max retries: %w", job.ID, err)
		}

		w.logger.Warn("job moved to dead letter",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("kind", job.Kind))
	}

	return nil
}

func (w *Worker) handleJobSuccess(job *Job, duration time.Duration) error {
	if err := w.repo.CompleteJob(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.logger.Debug("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("kind", job.Kind),
		slog.String("lane", job.Lane),
		slog.Duration("duration", duration))

	return nil
}
