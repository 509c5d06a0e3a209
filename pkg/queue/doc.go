// Package queue provides a lane-based background job queue with delayed
// delivery, worker locking, retries and a dead-letter store.
//
// Jobs are JSON payloads placed on named lanes. Herald uses two lanes for
// signal delivery, delivery-high and delivery-normal, each served by its own
// worker pool so critical signals are never queued behind bulk traffic.
//
// # Enqueueing
//
// An Enqueuer marshals a payload and creates a pending job. The job kind is
// derived from the payload's type name, so the worker side registers handlers
// against the same type:
//
//	enq, _ := queue.NewEnqueuer(repo, queue.WithDefaultLane("delivery-normal"))
//	err := enq.Enqueue(ctx, DeliveryJob{...},
//		queue.WithLane("delivery-high"),
//		queue.WithDelay(5*time.Minute),
//	)
//
// WithDelay and WithScheduledAt use the repository's native delayed delivery:
// a deferred job is a pending row with a future scheduled_at, so it survives
// process restarts.
//
// # Processing
//
// A Worker polls its lanes, claims due jobs with a lock, and dispatches them
// to handlers through a bounded concurrency pool:
//
//	w, _ := queue.NewWorker(repo,
//		queue.WithLanes("delivery-high"),
//		queue.WithMaxConcurrentJobs(16),
//	)
//	w.RegisterHandler(queue.NewJobHandler(func(ctx context.Context, job DeliveryJob) error {
//		return deliver(ctx, job)
//	}))
//	g.Go(w.Run(ctx))
//
// Claiming is atomic per job, so multiple workers (and multiple processes)
// can safely poll the same lanes; a crashed worker's jobs become reclaimable
// when their lock expires. Delivery is at-least-once: handlers must tolerate
// a rare duplicate execution.
//
// A handler error increments the job's retry count; once MaxRetries is
// exhausted the job moves to the dead-letter store. Jobs whose kind has no
// registered handler go there directly.
//
// # Periodic jobs
//
// A Scheduler creates recurring jobs which workers consume like any other:
//
//	s, _ := queue.NewScheduler(repo)
//	_ = s.Register("dlq_report", queue.Every(time.Hour), queue.DefaultLane)
//	g.Go(func() error { return s.Start(ctx) })
//
// # Storage
//
// MemoryStorage implements all repository interfaces for tests and local
// development. Production uses the Postgres-backed store, which claims jobs
// with FOR UPDATE SKIP LOCKED.
package queue
