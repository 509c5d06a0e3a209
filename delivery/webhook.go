package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/heraldhq/herald/pkg/auth"
	"github.com/heraldhq/herald/pkg/id"
	"github.com/heraldhq/herald/storage"
)

// defaultWebhookTimeout bounds the whole POST, connect included.
const defaultWebhookTimeout = 30 * time.Second

// Payload is the webhook request body. Top-level fields are camelCase;
// the body bytes as sent are the exact input to the signature.
type Payload struct {
	DeliveryID string         `json:"deliveryId"`
	WebhookID  *string        `json:"webhookId"`
	Channel    PayloadChannel `json:"channel"`
	Signal     PayloadSignal  `json:"signal"`
}

type PayloadChannel struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
}

type PayloadSignal struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	Urgency   storage.SignalUrgency `json:"urgency"`
	Metadata  json.RawMessage       `json:"metadata"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewPayload builds the webhook body for one delivery attempt. webhookID is
// nil for tunnel deliveries; the payload is still built so a dead letter
// entry can carry it.
func NewPayload(deliveryID string, webhookID *string, ch *storage.Channel, sig *storage.Signal) Payload {
	return Payload{
		DeliveryID: deliveryID,
		WebhookID:  webhookID,
		Channel: PayloadChannel{
			ID:          ch.ID,
			Slug:        ch.Slug,
			DisplayName: ch.DisplayName,
		},
		Signal: PayloadSignal{
			ID:        sig.ID,
			Title:     sig.Title,
			Body:      sig.Body,
			Urgency:   sig.Urgency,
			Metadata:  sig.Metadata,
			CreatedAt: sig.CreatedAt,
		},
	}
}

// deliverViaWebhook runs one signed POST attempt against the subscription's
// webhook and records the outcome. A non-2xx response or a transport error
// goes through the shared failure path, which schedules the retry or parks
// the delivery in the dead letter queue.
func (h *Handler) deliverViaWebhook(ctx context.Context, sig *storage.Signal, sub *storage.Subscription, subscriber *storage.Subscriber, ch *storage.Channel, wh *storage.Webhook, attempt int) error {
	d := &storage.Delivery{
		ID:             id.New(id.PrefixDelivery),
		SignalID:       sig.ID,
		SubscriptionID: sub.ID,
		WebhookID:      &wh.ID,
		Mode:           storage.ModeWebhook,
		Attempt:        attempt,
	}
	if err := h.store.CreateDelivery(ctx, d); err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	payload := NewPayload(d.ID, &wh.ID, ch, sig)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	timestamp := time.Now().Unix()
	signature := auth.SignPayload(subscriber.WebhookSecret, timestamp, string(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Herald-Signature", signature)
	req.Header.Set("X-Herald-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("X-Herald-Delivery-Id", d.ID)
	if wh.Token != nil {
		req.Header.Set("Authorization", "Bearer "+*wh.Token)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	latencyMs := int(time.Since(start).Milliseconds())

	if err != nil {
		return h.recordFailure(ctx, failure{
			signal:       sig,
			subscription: sub,
			webhook:      wh,
			payload:      payload,
			deliveryID:   d.ID,
			attempt:      attempt,
			errorMessage: err.Error(),
			latencyMs:    &latencyMs,
			allowRetry:   true,
		})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	statusCode := resp.StatusCode
	if statusCode >= 200 && statusCode < 300 {
		if err := h.store.UpdateDeliveryStatus(ctx, d.ID, storage.DeliverySuccess, &statusCode, nil, &latencyMs); err != nil {
			return fmt.Errorf("failed to mark delivery %s success: %w", d.ID, err)
		}
		if err := h.store.IncrementSignalCounts(ctx, sig.ID, 1, 0, 1); err != nil {
			return fmt.Errorf("failed to bump counters for signal %s: %w", sig.ID, err)
		}
		if err := h.store.UpdateWebhookSuccess(ctx, wh.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record webhook success for %s: %w", wh.ID, err)
		}
		return nil
	}

	return h.recordFailure(ctx, failure{
		signal:       sig,
		subscription: sub,
		webhook:      wh,
		payload:      payload,
		deliveryID:   d.ID,
		attempt:      attempt,
		statusCode:   &statusCode,
		errorMessage: fmt.Sprintf("HTTP %d", statusCode),
		latencyMs:    &latencyMs,
		allowRetry:   true,
	})
}
