package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const channelColumns = `id, publisher_id, slug, display_name, description, category,
	status, is_public, signal_count, subscriber_count, created_at, updated_at`

// CreateChannel inserts a channel.
func (s *Storage) CreateChannel(ctx context.Context, ch *Channel) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO channels (id, publisher_id, slug, display_name, description, category, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+channelColumns,
		ch.ID, ch.PublisherID, ch.Slug, ch.DisplayName, ch.Description, ch.Category, ch.IsPublic)
	if err := scanChannel(row, ch); err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}
	return nil
}

// GetChannel fetches a channel by id.
func (s *Storage) GetChannel(ctx context.Context, id string) (*Channel, error) {
	var ch Channel
	row := s.pool.QueryRow(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE id = $1`, id)
	if err := scanChannel(row, &ch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get channel %s: %w", id, err)
	}
	return &ch, nil
}

// IncrementChannelSignalCount applies a relative delta to signal_count.
func (s *Storage) IncrementChannelSignalCount(ctx context.Context, channelID string, delta int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE channels
		SET signal_count = signal_count + $1, updated_at = now()
		WHERE id = $2`, delta, channelID); err != nil {
		return fmt.Errorf("failed to increment signal count for channel %s: %w", channelID, err)
	}
	return nil
}

// IncrementChannelSubscriberCount applies a relative delta to subscriber_count.
func (s *Storage) IncrementChannelSubscriberCount(ctx context.Context, channelID string, delta int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE channels
		SET subscriber_count = subscriber_count + $1, updated_at = now()
		WHERE id = $2`, delta, channelID); err != nil {
		return fmt.Errorf("failed to increment subscriber count for channel %s: %w", channelID, err)
	}
	return nil
}

func scanChannel(row pgx.Row, ch *Channel) error {
	return row.Scan(
		&ch.ID, &ch.PublisherID, &ch.Slug, &ch.DisplayName, &ch.Description,
		&ch.Category, &ch.Status, &ch.IsPublic, &ch.SignalCount,
		&ch.SubscriberCount, &ch.CreatedAt, &ch.UpdatedAt)
}
