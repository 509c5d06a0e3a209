package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const dlqColumns = `id, delivery_id, signal_id, subscription_id, payload,
	error_history, resolved_at, created_at`

// CreateDeadLetter parks an exhausted delivery for manual recovery.
func (s *Storage) CreateDeadLetter(ctx context.Context, entry *DeadLetterEntry) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO dead_letter_queue
			(id, delivery_id, signal_id, subscription_id, payload, error_history)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+dlqColumns,
		entry.ID, entry.DeliveryID, entry.SignalID, entry.SubscriptionID,
		entry.Payload, entry.ErrorHistory)
	if err := scanDeadLetter(row, entry); err != nil {
		return fmt.Errorf("failed to insert dead letter entry: %w", err)
	}
	return nil
}

// ListUnresolvedDeadLetters returns entries awaiting operator action,
// newest first.
func (s *Storage) ListUnresolvedDeadLetters(ctx context.Context) ([]DeadLetterEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+dlqColumns+`
		FROM dead_letter_queue
		WHERE resolved_at IS NULL
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetterEntry
	for rows.Next() {
		var entry DeadLetterEntry
		if err := scanDeadLetter(rows, &entry); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter row: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// GetDeadLetter fetches an entry by id.
func (s *Storage) GetDeadLetter(ctx context.Context, id string) (*DeadLetterEntry, error) {
	var entry DeadLetterEntry
	row := s.pool.QueryRow(ctx, `
		SELECT `+dlqColumns+`
		FROM dead_letter_queue
		WHERE id = $1`, id)
	if err := scanDeadLetter(row, &entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dead letter %s: %w", id, err)
	}
	return &entry, nil
}

// ResolveDeadLetter stamps an entry resolved.
func (s *Storage) ResolveDeadLetter(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE dead_letter_queue
		SET resolved_at = now()
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to resolve dead letter %s: %w", id, err)
	}
	return nil
}

func scanDeadLetter(row pgx.Row, entry *DeadLetterEntry) error {
	return row.Scan(
		&entry.ID, &entry.DeliveryID, &entry.SignalID, &entry.SubscriptionID,
		&entry.Payload, &entry.ErrorHistory, &entry.ResolvedAt, &entry.CreatedAt)
}
