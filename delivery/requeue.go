package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heraldhq/herald/pkg/queue"
)

// RetryFromDLQ re-drives a dead letter entry: a fresh job with attempt 0 on
// the normal lane, then the entry is marked resolved. The fresh job gets
// the full retry schedule again.
//
// The subscription is re-read so the job picks up its current webhook
// binding rather than the one captured when the delivery died.
func (h *Handler) RetryFromDLQ(ctx context.Context, deadLetterID string) error {
	entry, err := h.store.GetDeadLetter(ctx, deadLetterID)
	if err != nil {
		return fmt.Errorf("failed to load dead letter %s: %w", deadLetterID, err)
	}
	if entry.ResolvedAt != nil {
		return ErrDeadLetterResolved
	}

	sub, err := h.store.GetSubscription(ctx, entry.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to load subscription %s: %w", entry.SubscriptionID, err)
	}

	job := DeliveryJob{
		SignalID:       entry.SignalID,
		SubscriptionID: entry.SubscriptionID,
		WebhookID:      sub.WebhookID,
		Attempt:        0,
	}
	if err := h.enqueuer.Enqueue(ctx, job, queue.WithLane(LaneNormal)); err != nil {
		return fmt.Errorf("failed to enqueue dead letter retry: %w", err)
	}

	if err := h.store.ResolveDeadLetter(ctx, deadLetterID); err != nil {
		return fmt.Errorf("failed to resolve dead letter %s: %w", deadLetterID, err)
	}

	h.log.Info("dead letter entry requeued",
		slog.String("dead_letter_id", deadLetterID),
		slog.String("signal_id", entry.SignalID),
		slog.String("subscription_id", entry.SubscriptionID))

	return nil
}
