package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const webhookColumns = `id, subscriber_id, url, name, token, status,
	failure_count, last_success_at, last_failure_at, created_at, updated_at`

// CreateWebhook inserts a webhook endpoint.
func (s *Storage) CreateWebhook(ctx context.Context, wh *Webhook) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO webhooks (id, subscriber_id, url, name, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+webhookColumns,
		wh.ID, wh.SubscriberID, wh.URL, wh.Name, wh.Token)
	if err := scanWebhook(row, wh); err != nil {
		return fmt.Errorf("failed to insert webhook: %w", err)
	}
	return nil
}

// GetWebhook fetches a webhook by id.
func (s *Storage) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	var wh Webhook
	row := s.pool.QueryRow(ctx, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE id = $1`, id)
	if err := scanWebhook(row, &wh); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook %s: %w", id, err)
	}
	return &wh, nil
}

// ListWebhooksBySubscriber returns a subscriber's webhooks, newest first.
func (s *Storage) ListWebhooksBySubscriber(ctx context.Context, subscriberID string) ([]Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE subscriber_id = $1
		ORDER BY created_at DESC`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for subscriber %s: %w", subscriberID, err)
	}
	defer rows.Close()

	var out []Webhook
	for rows.Next() {
		var wh Webhook
		if err := scanWebhook(rows, &wh); err != nil {
			return nil, fmt.Errorf("failed to scan webhook row: %w", err)
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

// UpdateWebhookSuccess records a successful delivery: failure_count resets
// to zero and last_success_at advances.
func (s *Storage) UpdateWebhookSuccess(ctx context.Context, id string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE webhooks
		SET failure_count = 0, last_success_at = $1, updated_at = now()
		WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to record success for webhook %s: %w", id, err)
	}
	return nil
}

// UpdateWebhookFailure records a failed delivery attempt: failure_count
// increments and last_failure_at advances.
func (s *Storage) UpdateWebhookFailure(ctx context.Context, id string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE webhooks
		SET failure_count = failure_count + 1, last_failure_at = $1, updated_at = now()
		WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to record failure for webhook %s: %w", id, err)
	}
	return nil
}

func scanWebhook(row pgx.Row, wh *Webhook) error {
	return row.Scan(
		&wh.ID, &wh.SubscriberID, &wh.URL, &wh.Name, &wh.Token, &wh.Status,
		&wh.FailureCount, &wh.LastSuccessAt, &wh.LastFailureAt,
		&wh.CreatedAt, &wh.UpdatedAt)
}
