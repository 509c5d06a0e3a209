package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const signalColumns = `id, channel_id, title, body, urgency, metadata,
	delivery_count, delivered_count, failed_count, status, created_at`

// CreateSignal inserts a signal and bumps the owning channel's signal_count
// in the same transaction.
func (s *Storage) CreateSignal(ctx context.Context, sig *Signal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `
		INSERT INTO signals (id, channel_id, title, body, urgency, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+signalColumns,
		sig.ID, sig.ChannelID, sig.Title, sig.Body, sig.Urgency, sig.Metadata)
	if err := scanSignal(row, sig); err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE channels
		SET signal_count = signal_count + 1, updated_at = now()
		WHERE id = $1`,
		sig.ChannelID); err != nil {
		return fmt.Errorf("failed to increment channel signal count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit signal insert: %w", err)
	}
	return nil
}

// GetSignal fetches a signal by id.
func (s *Storage) GetSignal(ctx context.Context, id string) (*Signal, error) {
	var sig Signal
	row := s.pool.QueryRow(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE id = $1`, id)
	if err := scanSignal(row, &sig); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get signal %s: %w", id, err)
	}
	return &sig, nil
}

// ListSignalsByChannel returns a channel's signals newest first with
// cursor pagination; pass the last signal's id as cursor for the next page.
func (s *Storage) ListSignalsByChannel(ctx context.Context, channelID string, limit int, cursor string) ([]Signal, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cursor != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+signalColumns+`
			FROM signals
			WHERE channel_id = $1 AND id < $2
			ORDER BY created_at DESC
			LIMIT $3`, channelID, cursor, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+signalColumns+`
			FROM signals
			WHERE channel_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, channelID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list signals for channel %s: %w", channelID, err)
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var sig Signal
		if err := scanSignal(rows, &sig); err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// IncrementSignalCounts applies atomic relative deltas to a signal's
// delivery counters. Called by delivery workers after each attempt.
func (s *Storage) IncrementSignalCounts(ctx context.Context, signalID string, delivered, failed, total int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE signals
		SET delivered_count = delivered_count + $1,
			failed_count = failed_count + $2,
			delivery_count = delivery_count + $3
		WHERE id = $4`,
		delivered, failed, total, signalID); err != nil {
		return fmt.Errorf("failed to increment counts for signal %s: %w", signalID, err)
	}
	return nil
}

// UpdateSignalStatus marks a signal active or deleted.
func (s *Storage) UpdateSignalStatus(ctx context.Context, id string, status SignalStatus) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE signals
		SET status = $1
		WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("failed to update status for signal %s: %w", id, err)
	}
	return nil
}

func scanSignal(row pgx.Row, sig *Signal) error {
	return row.Scan(
		&sig.ID, &sig.ChannelID, &sig.Title, &sig.Body, &sig.Urgency,
		&sig.Metadata, &sig.DeliveryCount, &sig.DeliveredCount,
		&sig.FailedCount, &sig.Status, &sig.CreatedAt)
}
