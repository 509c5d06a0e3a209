package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heraldhq/herald/pkg/pg"
)

const subscriptionColumns = `id, subscriber_id, channel_id, webhook_id, status,
	created_at, updated_at`

// CreateSubscription inserts a subscription. A partial unique index enforces
// at most one active subscription per (subscriber, channel); violations
// surface as ErrDuplicateSubscription.
func (s *Storage) CreateSubscription(ctx context.Context, sub *Subscription) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (id, subscriber_id, channel_id, webhook_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+subscriptionColumns,
		sub.ID, sub.SubscriberID, sub.ChannelID, sub.WebhookID)
	if err := scanSubscription(row, sub); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateSubscription
		}
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// GetSubscription fetches a subscription by id.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1`, id)
	if err := scanSubscription(row, &sub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription %s: %w", id, err)
	}
	return &sub, nil
}

// ListActiveSubscriptionsByChannel returns all active subscriptions on a
// channel. Fan-out enumerates these.
func (s *Storage) ListActiveSubscriptionsByChannel(ctx context.Context, channelID string) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE channel_id = $1 AND status = 'active'`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions for channel %s: %w", channelID, err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListSubscriptionsBySubscriber returns a subscriber's subscriptions,
// newest first.
func (s *Storage) ListSubscriptionsBySubscriber(ctx context.Context, subscriberID string) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_id = $1
		ORDER BY created_at DESC`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for subscriber %s: %w", subscriberID, err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// UpdateSubscriptionStatus transitions a subscription's lifecycle state.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = now()
		WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("failed to update status for subscription %s: %w", id, err)
	}
	return nil
}

func scanSubscription(row pgx.Row, sub *Subscription) error {
	return row.Scan(
		&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.WebhookID,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
}
