package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (p *Pool) CountAPIKeys(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM gateway.api_keys WHERE NOT disabled`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

func (p *Pool) InsertAPIKey(ctx context.Context, keyHash, subject string) (*APIKey, error) {
	const q = `
INSERT INTO gateway.api_keys (
	key_hash,
	subject,
	created_at
)
VALUES ($1, $2, now())
RETURNING
	key_id,
	key_hash,
	subject,
	disabled,
	created_at,
	last_used_at
`

	var row APIKey
	if err := p.QueryRow(ctx, q, strings.TrimSpace(keyHash), strings.TrimSpace(subject)).Scan(
		&row.KeyID,
		&row.KeyHash,
		&row.Subject,
		&row.Disabled,
		&row.CreatedAt,
		&row.LastUsedAt,
	); err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}

	return &row, nil
}

func (p *Pool) GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	const q = `
SELECT
	key_id,
	key_hash,
	subject,
	disabled,
	created_at,
	last_used_at
FROM gateway.api_keys
WHERE key_hash = $1
  AND NOT disabled
LIMIT 1
`

	var row APIKey
	if err := p.QueryRow(ctx, q, strings.TrimSpace(keyHash)).Scan(
		&row.KeyID,
		&row.KeyHash,
		&row.Subject,
		&row.Disabled,
		&row.CreatedAt,
		&row.LastUsedAt,
	); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query api key by hash: %w", err)
	}
	return &row, nil
}

func (p *Pool) TouchAPIKeyLastUsed(ctx context.Context, keyID int64, usedAt time.Time) error {
	const q = `
UPDATE gateway.api_keys
SET last_used_at = $2
WHERE key_id = $1
`

	if err := p.gdb.WithContext(ctx).Exec(q, keyID, usedAt.UTC()).Error; err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
