package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, key_hash, key_prefix, owner_type, owner_id, name,
	scopes, last_used_at, expires_at, status, created_at`

// CreateAPIKey inserts an API key. Only the hash is stored; the raw key
// never reaches this layer.
func (s *Storage) CreateAPIKey(ctx context.Context, key *APIKey) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, key_hash, key_prefix, owner_type, owner_id, name, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+apiKeyColumns,
		key.ID, key.KeyHash, key.KeyPrefix, key.OwnerType, key.OwnerID, key.Name, key.Scopes)
	if err := scanAPIKey(row, key); err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash looks up an active, unexpired key by its SHA-256 hash.
// Revoked, expired or unknown hashes all return ErrNotFound.
func (s *Storage) GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	var key APIKey
	row := s.pool.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE key_hash = $1 AND status = 'active'
			AND (expires_at IS NULL OR expires_at > now())`, keyHash)
	if err := scanAPIKey(row, &key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up api key by hash: %w", err)
	}
	return &key, nil
}

// TouchAPIKeyLastUsed advances last_used_at to now.
func (s *Storage) TouchAPIKeyLastUsed(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE api_keys
		SET last_used_at = now()
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch api key %s: %w", id, err)
	}
	return nil
}

// RevokeAPIKey marks a key revoked; it stops authenticating immediately.
func (s *Storage) RevokeAPIKey(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE api_keys
		SET status = 'revoked'
		WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to revoke api key %s: %w", id, err)
	}
	return nil
}

func scanAPIKey(row pgx.Row, key *APIKey) error {
	return row.Scan(
		&key.ID, &key.KeyHash, &key.KeyPrefix, &key.OwnerType, &key.OwnerID,
		&key.Name, &key.Scopes, &key.LastUsedAt, &key.ExpiresAt, &key.Status,
		&key.CreatedAt)
}
