package delivery

import (
	"context"
	"log/slog"

	"github.com/heraldhq/herald/pkg/queue"
)

// BacklogReportKind names the periodic job that reports the dead letter
// backlog. Registered with the queue scheduler under this kind.
const BacklogReportKind = "delivery.dlq_backlog_report"

// NewBacklogReporter returns the periodic handler that logs how many dead
// letter entries await operator action. A non-empty backlog is the signal
// to go look at a broken webhook endpoint.
func NewBacklogReporter(store Storage, log *slog.Logger) queue.Handler {
	if log == nil {
		log = slog.Default()
	}
	return queue.NewPeriodicJobHandler(BacklogReportKind, func(ctx context.Context) error {
		entries, err := store.ListUnresolvedDeadLetters(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			log.Debug("dead letter queue empty")
			return nil
		}

		oldest := entries[len(entries)-1]
		log.Warn("dead letter entries awaiting resolution",
			slog.Int("count", len(entries)),
			slog.String("oldest_id", oldest.ID),
			slog.Time("oldest_created_at", oldest.CreatedAt))
		return nil
	})
}
