package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heraldhq/herald/delivery"
	"github.com/heraldhq/herald/pkg/id"
	"github.com/heraldhq/herald/pkg/queue"
	"github.com/heraldhq/herald/storage"
)

// Storage is the persistence surface the ingestion path needs.
type Storage interface {
	GetChannel(ctx context.Context, id string) (*storage.Channel, error)
	CreateSignal(ctx context.Context, sig *storage.Signal) error
	ListSignalsByChannel(ctx context.Context, channelID string, limit int, cursor string) ([]storage.Signal, error)
	ListActiveSubscriptionsByChannel(ctx context.Context, channelID string) ([]storage.Subscription, error)
}

// Enqueuer places delivery jobs on their lanes.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// AuthContext identifies the authenticated caller, as resolved from its
// API key by the transport layer.
type AuthContext struct {
	OwnerType storage.APIKeyOwner
	OwnerID   string
}

// PublishInput is the caller-supplied signal content. Urgency defaults to
// normal and Metadata to an empty object.
type PublishInput struct {
	Title    string
	Body     string
	Urgency  storage.SignalUrgency
	Metadata json.RawMessage
}

// PublishResult is returned to the publisher after a successful publish.
type PublishResult struct {
	SignalID  string
	ChannelID string
	Status    storage.SignalStatus
	CreatedAt time.Time
}

// Service handles signal publication and the read side of a channel's
// signal history.
type Service struct {
	store    Storage
	enqueuer Enqueuer
	log      *slog.Logger
}

// ServiceOption configures a Service at construction.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an ingestion service.
func NewService(store Storage, enqueuer Enqueuer, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		enqueuer: enqueuer,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishSignal validates the request, persists the signal and enqueues one
// delivery job per active subscription.
//
// The signal insert and the channel's signal_count bump share a
// transaction; the fan-out that follows does not, so a crash mid-loop can
// drop jobs for tail subscriptions. Per-subscription enqueue failures are
// logged and skipped rather than aborting the rest of the fan-out.
func (s *Service) PublishSignal(ctx context.Context, channelID string, authCtx AuthContext, in PublishInput) (*PublishResult, error) {
	if authCtx.OwnerType != storage.OwnerPublisher {
		return nil, ErrPublisherRequired
	}

	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}
	if ch.Status == storage.ChannelDeleted {
		return nil, ErrChannelNotFound
	}
	if ch.PublisherID != authCtx.OwnerID {
		return nil, ErrNotChannelOwner
	}
	if ch.Status != storage.ChannelActive {
		return nil, ErrChannelNotActive
	}

	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if title == "" || body == "" {
		return nil, ErrTitleAndBodyRequired
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = storage.UrgencyNormal
	}
	if !urgency.Valid() {
		return nil, ErrInvalidUrgency
	}

	metadata := in.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}

	sig := &storage.Signal{
		ID:        id.New(id.PrefixSignal),
		ChannelID: ch.ID,
		Title:     title,
		Body:      body,
		Urgency:   urgency,
		Metadata:  metadata,
	}
	if err := s.store.CreateSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("failed to create signal: %w", err)
	}

	subs, err := s.store.ListActiveSubscriptionsByChannel(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for channel %s: %w", ch.ID, err)
	}

	lane := delivery.LaneForUrgency(urgency)
	enqueued := 0
	for _, sub := range subs {
		job := delivery.DeliveryJob{
			SignalID:       sig.ID,
			SubscriptionID: sub.ID,
			WebhookID:      sub.WebhookID,
			Attempt:        0,
		}
		if err := s.enqueuer.Enqueue(ctx, job, queue.WithLane(lane)); err != nil {
			s.log.Error("failed to enqueue delivery job",
				slog.String("signal_id", sig.ID),
				slog.String("subscription_id", sub.ID),
				slog.String("lane", lane),
				slog.String("error", err.Error()))
			continue
		}
		enqueued++
	}

	s.log.Info("signal published",
		slog.String("signal_id", sig.ID),
		slog.String("channel_id", ch.ID),
		slog.String("urgency", string(urgency)),
		slog.String("lane", lane),
		slog.Int("subscriptions", len(subs)),
		slog.Int("enqueued", enqueued))

	return &PublishResult{
		SignalID:  sig.ID,
		ChannelID: ch.ID,
		Status:    storage.SignalActive,
		CreatedAt: sig.CreatedAt,
	}, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ListSignals returns a channel's signal history newest first with cursor
// pagination, restricted to the owning publisher.
func (s *Service) ListSignals(ctx context.Context, channelID string, authCtx AuthContext, limit int, cursor string) ([]storage.Signal, error) {
	if authCtx.OwnerType != storage.OwnerPublisher {
		return nil, ErrPublisherRequired
	}

	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}
	if ch.Status == storage.ChannelDeleted {
		return nil, ErrChannelNotFound
	}
	if ch.PublisherID != authCtx.OwnerID {
		return nil, ErrNotChannelOwner
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	signals, err := s.store.ListSignalsByChannel(ctx, ch.ID, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals for channel %s: %w", ch.ID, err)
	}
	return signals, nil
}
