package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const deliveryColumns = `id, signal_id, subscription_id, webhook_id, mode, attempt,
	status, status_code, error_message, latency_ms, created_at, updated_at`

// CreateDelivery inserts a delivery attempt with status pending.
func (s *Storage) CreateDelivery(ctx context.Context, d *Delivery) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO deliveries (id, signal_id, subscription_id, webhook_id, mode, attempt)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+deliveryColumns,
		d.ID, d.SignalID, d.SubscriptionID, d.WebhookID, d.Mode, d.Attempt)
	if err := scanDelivery(row, d); err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus moves a delivery to its terminal state, recording the
// HTTP status code, error message and round-trip latency when present.
func (s *Storage) UpdateDeliveryStatus(ctx context.Context, id string, status DeliveryStatus, statusCode *int, errorMessage *string, latencyMs *int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE deliveries
		SET status = $1, status_code = $2, error_message = $3, latency_ms = $4,
			updated_at = now()
		WHERE id = $5`,
		status, statusCode, errorMessage, latencyMs, id); err != nil {
		return fmt.Errorf("failed to update status for delivery %s: %w", id, err)
	}
	return nil
}

// GetDelivery fetches a delivery by id.
func (s *Storage) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	var d Delivery
	row := s.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE id = $1`, id)
	if err := scanDelivery(row, &d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get delivery %s: %w", id, err)
	}
	return &d, nil
}

// ListDeliveriesByWebhook returns a webhook's delivery trail newest first
// with cursor pagination. This is the user-visible failure history.
func (s *Storage) ListDeliveriesByWebhook(ctx context.Context, webhookID string, limit int, cursor string) ([]Delivery, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cursor != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+deliveryColumns+`
			FROM deliveries
			WHERE webhook_id = $1 AND id < $2
			ORDER BY created_at DESC
			LIMIT $3`, webhookID, cursor, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+deliveryColumns+`
			FROM deliveries
			WHERE webhook_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, webhookID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries for webhook %s: %w", webhookID, err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

// ListDeliveriesBySignal returns all delivery attempts for a signal across
// subscribers, newest first.
func (s *Storage) ListDeliveriesBySignal(ctx context.Context, signalID string) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE signal_id = $1
		ORDER BY created_at DESC`, signalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries for signal %s: %w", signalID, err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

func collectDeliveries(rows pgx.Rows) ([]Delivery, error) {
	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := scanDelivery(rows, &d); err != nil {
			return nil, fmt.Errorf("failed to scan delivery row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDelivery(row pgx.Row, d *Delivery) error {
	return row.Scan(
		&d.ID, &d.SignalID, &d.SubscriptionID, &d.WebhookID, &d.Mode,
		&d.Attempt, &d.Status, &d.StatusCode, &d.ErrorMessage, &d.LatencyMs,
		&d.CreatedAt, &d.UpdatedAt)
}
