package delivery

import (
	"context"
	"fmt"

	"github.com/heraldhq/herald/pkg/id"
	"github.com/heraldhq/herald/storage"
	"github.com/heraldhq/herald/tunnel"
)

// deliverViaTunnel pushes the signal into the agent's outbound channel. The
// send never blocks; a full buffer means the agent is unhealthy and counts
// as a failed attempt.
//
// The returned done flag reports whether the job is finished: true on a
// successful push, and also on a failed push for a tunnel-only subscription,
// where recordFailure already scheduled the requeue (or dead-lettered the
// delivery). done is false only when the failure should fall through to the
// subscription's webhook in the same job.
//
// Success is recorded at send time with no latency: the agent ack round
// trip is informational, not a success criterion.
func (h *Handler) deliverViaTunnel(ctx context.Context, sig *storage.Signal, sub *storage.Subscription, ch *storage.Channel, conn *tunnel.AgentConnection, attempt int, allowRetry bool) (done bool, err error) {
	d := &storage.Delivery{
		ID:             id.New(id.PrefixDelivery),
		SignalID:       sig.ID,
		SubscriptionID: sub.ID,
		Mode:           storage.ModeAgent,
		Attempt:        attempt,
	}
	if err := h.store.CreateDelivery(ctx, d); err != nil {
		return false, fmt.Errorf("failed to create tunnel delivery: %w", err)
	}

	if err := conn.TrySend(tunnel.NewSignal(d.ID, ch, sig)); err != nil {
		ferr := h.recordFailure(ctx, failure{
			signal:       sig,
			subscription: sub,
			payload:      NewPayload(d.ID, sub.WebhookID, ch, sig),
			deliveryID:   d.ID,
			attempt:      attempt,
			errorMessage: err.Error(),
			allowRetry:   allowRetry,
		})
		if ferr != nil {
			return false, ferr
		}
		return allowRetry, nil
	}

	if err := h.store.UpdateDeliveryStatus(ctx, d.ID, storage.DeliverySuccess, nil, nil, nil); err != nil {
		return false, fmt.Errorf("failed to mark delivery %s success: %w", d.ID, err)
	}
	if err := h.store.IncrementSignalCounts(ctx, sig.ID, 1, 0, 1); err != nil {
		return false, fmt.Errorf("failed to bump counters for signal %s: %w", sig.ID, err)
	}
	return true, nil
}
