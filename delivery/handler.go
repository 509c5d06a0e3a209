package delivery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/heraldhq/herald/pkg/queue"
	"github.com/heraldhq/herald/storage"
	"github.com/heraldhq/herald/tunnel"
)

// Storage is the persistence surface the delivery worker needs.
type Storage interface {
	GetSignal(ctx context.Context, id string) (*storage.Signal, error)
	GetSubscription(ctx context.Context, id string) (*storage.Subscription, error)
	GetChannel(ctx context.Context, id string) (*storage.Channel, error)
	GetSubscriber(ctx context.Context, id string) (*storage.Subscriber, error)
	GetWebhook(ctx context.Context, id string) (*storage.Webhook, error)

	CreateDelivery(ctx context.Context, d *storage.Delivery) error
	UpdateDeliveryStatus(ctx context.Context, id string, status storage.DeliveryStatus, statusCode *int, errorMessage *string, latencyMs *int) error
	IncrementSignalCounts(ctx context.Context, signalID string, delivered, failed, total int) error
	UpdateWebhookSuccess(ctx context.Context, id string, at time.Time) error
	UpdateWebhookFailure(ctx context.Context, id string, at time.Time) error

	CreateDeadLetter(ctx context.Context, entry *storage.DeadLetterEntry) error
	GetDeadLetter(ctx context.Context, id string) (*storage.DeadLetterEntry, error)
	ResolveDeadLetter(ctx context.Context, id string) error
	ListUnresolvedDeadLetters(ctx context.Context) ([]storage.DeadLetterEntry, error)
}

// AgentRegistry resolves a subscriber's live tunnel connection, if any.
type AgentRegistry interface {
	Get(subscriberID string) *tunnel.AgentConnection
}

// Enqueuer schedules follow-up delivery jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Handler executes delivery jobs: it picks the transport, performs one
// attempt, and applies the retry policy on failure.
type Handler struct {
	store    Storage
	registry AgentRegistry
	enqueuer Enqueuer
	client   *http.Client
	log      *slog.Logger
}

// HandlerOption configures a Handler at construction.
type HandlerOption func(*Handler)

// WithHTTPClient replaces the webhook HTTP client. The default carries the
// 30 second overall request timeout.
func WithHTTPClient(client *http.Client) HandlerOption {
	return func(h *Handler) {
		if client != nil {
			h.client = client
		}
	}
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler creates a delivery handler.
func NewHandler(store Storage, registry AgentRegistry, enqueuer Enqueuer, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:    store,
		registry: registry,
		enqueuer: enqueuer,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle performs one delivery attempt for a job.
//
// Transport selection: a connected agent is tried first. A failed tunnel
// send falls through to the webhook when the subscription has one; retries
// of the tunnel itself happen only through requeue, and only for
// tunnel-only subscriptions. With neither transport the job fails into the
// queue's dead letter store.
//
// A missing entity terminates the job without retry: retrying cannot bring
// a deleted signal or subscription back.
func (h *Handler) Handle(ctx context.Context, job DeliveryJob) error {
	sig, err := h.store.GetSignal(ctx, job.SignalID)
	if err != nil {
		return h.missingEntity(job, "signal", job.SignalID, err)
	}
	sub, err := h.store.GetSubscription(ctx, job.SubscriptionID)
	if err != nil {
		return h.missingEntity(job, "subscription", job.SubscriptionID, err)
	}
	ch, err := h.store.GetChannel(ctx, sig.ChannelID)
	if err != nil {
		return h.missingEntity(job, "channel", sig.ChannelID, err)
	}
	subscriber, err := h.store.GetSubscriber(ctx, sub.SubscriberID)
	if err != nil {
		return h.missingEntity(job, "subscriber", sub.SubscriberID, err)
	}

	if conn := h.registry.Get(sub.SubscriberID); conn != nil {
		allowRetry := sub.WebhookID == nil
		done, err := h.deliverViaTunnel(ctx, sig, sub, ch, conn, job.Attempt, allowRetry)
		if err != nil {
			return err
		}
		if done {
			// Either delivered, or the failure path already scheduled the
			// requeue for this tunnel-only subscription. The queue must see
			// the job as completed.
			return nil
		}
	}

	if sub.WebhookID != nil {
		wh, err := h.store.GetWebhook(ctx, *sub.WebhookID)
		if err != nil {
			return h.missingEntity(job, "webhook", *sub.WebhookID, err)
		}
		return h.deliverViaWebhook(ctx, sig, sub, subscriber, ch, wh, job.Attempt)
	}

	h.log.Error("no delivery method for subscription",
		slog.String("signal_id", job.SignalID),
		slog.String("subscription_id", job.SubscriptionID),
		slog.Int("attempt", job.Attempt))

	return ErrNoDeliveryMethod
}

// missingEntity terminates a job whose referenced entity is gone. Unexpected
// storage errors still propagate so the queue can redeliver.
func (h *Handler) missingEntity(job DeliveryJob, entity, entityID string, err error) error {
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	h.log.Warn("delivery job references missing entity, dropping",
		slog.String("entity", entity),
		slog.String("entity_id", entityID),
		slog.String("signal_id", job.SignalID),
		slog.String("subscription_id", job.SubscriptionID),
		slog.Int("attempt", job.Attempt))

	return nil
}
