package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const subscriberColumns = `id, name, email, webhook_secret, delivery_mode,
	agent_last_connected_at, status, created_at, updated_at`

const publisherColumns = `id, name, email, status, created_at, updated_at`

// GetSubscriber fetches a subscriber by id.
func (s *Storage) GetSubscriber(ctx context.Context, id string) (*Subscriber, error) {
	var sub Subscriber
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriberColumns+`
		FROM subscribers
		WHERE id = $1`, id)
	if err := scanSubscriber(row, &sub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscriber %s: %w", id, err)
	}
	return &sub, nil
}

// UpdateAgentLastConnectedAt records a successful tunnel authentication.
func (s *Storage) UpdateAgentLastConnectedAt(ctx context.Context, subscriberID string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE subscribers
		SET agent_last_connected_at = $1, updated_at = now()
		WHERE id = $2`, at, subscriberID); err != nil {
		return fmt.Errorf("failed to update agent_last_connected_at for subscriber %s: %w", subscriberID, err)
	}
	return nil
}

// GetPublisher fetches a publisher by id.
func (s *Storage) GetPublisher(ctx context.Context, id string) (*Publisher, error) {
	var pub Publisher
	row := s.pool.QueryRow(ctx, `
		SELECT `+publisherColumns+`
		FROM publishers
		WHERE id = $1`, id)
	if err := scanPublisher(row, &pub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get publisher %s: %w", id, err)
	}
	return &pub, nil
}

func scanSubscriber(row pgx.Row, sub *Subscriber) error {
	return row.Scan(
		&sub.ID, &sub.Name, &sub.Email, &sub.WebhookSecret, &sub.DeliveryMode,
		&sub.AgentLastConnectedAt, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
}

func scanPublisher(row pgx.Row, pub *Publisher) error {
	return row.Scan(
		&pub.ID, &pub.Name, &pub.Email, &pub.Status,
		&pub.CreatedAt, &pub.UpdatedAt)
}
