package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/heraldhq/herald/pkg/id"
	"github.com/heraldhq/herald/pkg/queue"
	"github.com/heraldhq/herald/storage"
)

// failure carries everything the shared failure path needs to record an
// attempt and decide between requeue and dead letter. webhook is nil for
// tunnel attempts.
type failure struct {
	signal       *storage.Signal
	subscription *storage.Subscription
	webhook      *storage.Webhook
	payload      Payload
	deliveryID   string
	attempt      int
	statusCode   *int
	errorMessage string
	latencyMs    *int
	allowRetry   bool
}

// errorRecord is one entry of a dead letter's errorHistory.
type errorRecord struct {
	Attempt    int    `json:"attempt"`
	Error      string `json:"error"`
	StatusCode *int   `json:"statusCode"`
}

// recordFailure is the common tail of a failed attempt: terminal delivery
// row, signal counters, webhook failure bump, then either a dead letter
// entry (attempt 5) or a delayed requeue of attempt+1 on the recomputed
// lane. The delay uses the queue's native scheduling, so pending retries
// survive a process restart.
func (h *Handler) recordFailure(ctx context.Context, f failure) error {
	errorMessage := f.errorMessage
	if err := h.store.UpdateDeliveryStatus(ctx, f.deliveryID, storage.DeliveryFailed, f.statusCode, &errorMessage, f.latencyMs); err != nil {
		return fmt.Errorf("failed to mark delivery %s failed: %w", f.deliveryID, err)
	}
	if err := h.store.IncrementSignalCounts(ctx, f.signal.ID, 0, 1, 1); err != nil {
		return fmt.Errorf("failed to bump counters for signal %s: %w", f.signal.ID, err)
	}
	if f.webhook != nil {
		if err := h.store.UpdateWebhookFailure(ctx, f.webhook.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record webhook failure for %s: %w", f.webhook.ID, err)
		}
	}

	if !f.allowRetry {
		h.log.Info("tunnel send failed, falling through to webhook",
			slog.String("delivery_id", f.deliveryID),
			slog.String("signal_id", f.signal.ID),
			slog.Int("attempt", f.attempt),
			slog.String("error", f.errorMessage))
		return nil
	}

	if f.attempt >= maxAttempt {
		return h.deadLetter(ctx, f)
	}

	next := DeliveryJob{
		SignalID:       f.signal.ID,
		SubscriptionID: f.subscription.ID,
		WebhookID:      f.subscription.WebhookID,
		Attempt:        f.attempt + 1,
	}
	lane := LaneForUrgency(f.signal.Urgency)
	delay := RetryDelay(f.attempt + 1)

	if err := h.enqueuer.Enqueue(ctx, next, queue.WithLane(lane), queue.WithDelay(delay)); err != nil {
		return fmt.Errorf("failed to schedule retry for delivery %s: %w", f.deliveryID, err)
	}

	h.log.Info("delivery retry scheduled",
		slog.String("delivery_id", f.deliveryID),
		slog.String("signal_id", f.signal.ID),
		slog.Int("next_attempt", f.attempt+1),
		slog.String("lane", lane),
		slog.Duration("delay", delay))

	return nil
}

// deadLetter parks an exhausted delivery with its last payload and error.
func (h *Handler) deadLetter(ctx context.Context, f failure) error {
	payload, err := json.Marshal(f.payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter payload: %w", err)
	}
	history, err := json.Marshal([]errorRecord{{
		Attempt:    f.attempt,
		Error:      f.errorMessage,
		StatusCode: f.statusCode,
	}})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter error history: %w", err)
	}

	entry := &storage.DeadLetterEntry{
		ID:             id.New(id.PrefixDeadLetter),
		DeliveryID:     f.deliveryID,
		SignalID:       f.signal.ID,
		SubscriptionID: f.subscription.ID,
		Payload:        payload,
		ErrorHistory:   history,
	}
	if err := h.store.CreateDeadLetter(ctx, entry); err != nil {
		return fmt.Errorf("failed to create dead letter entry for delivery %s: %w", f.deliveryID, err)
	}

	h.log.Warn("delivery exhausted retries, moved to dead letter queue",
		slog.String("dead_letter_id", entry.ID),
		slog.String("delivery_id", f.deliveryID),
		slog.String("signal_id", f.signal.ID),
		slog.String("subscription_id", f.subscription.ID),
		slog.Int("attempt", f.attempt),
		slog.String("error", f.errorMessage))

	return nil
}
