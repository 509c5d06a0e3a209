package delivery

import (
	"log/slog"

	"github.com/heraldhq/herald/pkg/queue"
)

// Config holds the delivery worker pool sizes. The high lane pool is larger
// so urgent signals drain ahead of bulk traffic.
type Config struct {
	HighConcurrency   int `env:"DELIVERY_HIGH_CONCURRENCY" envDefault:"8"`
	NormalConcurrency int `env:"DELIVERY_NORMAL_CONCURRENCY" envDefault:"4"`
}

// NewWorkers builds the two lane workers. Each lane polls independently, so
// a backlog on the normal lane never delays high-urgency deliveries. The
// normal worker also carries the periodic dead letter backlog reporter.
func NewWorkers(repo queue.WorkerRepository, h *Handler, cfg Config, log *slog.Logger) ([]*queue.Worker, error) {
	if log == nil {
		log = slog.Default()
	}

	jobHandler := queue.NewJobHandler(h.Handle)

	high, err := queue.NewWorker(repo,
		queue.WithLanes(LaneHigh),
		queue.WithMaxConcurrentJobs(cfg.HighConcurrency),
		queue.WithLogger(log))
	if err != nil {
		return nil, err
	}
	high.RegisterHandler(jobHandler)

	normal, err := queue.NewWorker(repo,
		queue.WithLanes(LaneNormal),
		queue.WithMaxConcurrentJobs(cfg.NormalConcurrency),
		queue.WithLogger(log))
	if err != nil {
		return nil, err
	}
	normal.RegisterHandlers(jobHandler, NewBacklogReporter(h.store, log))

	return []*queue.Worker{high, normal}, nil
}
