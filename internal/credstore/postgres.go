package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"horse.fit/babel/internal/db"
)

// Postgres resolves keys against the gateway.api_keys table.
type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) ResolveKey(ctx context.Context, keyHash string) (Identity, error) {
	if s == nil || s.pool == nil {
		return Identity{}, fmt.Errorf("credential store is not initialized")
	}

	row, err := s.pool.GetAPIKeyByHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return Identity{}, ErrKeyNotFound
		}
		return Identity{}, fmt.Errorf("resolve api key: %w", err)
	}

	// Best effort only, the request must not fail on a bookkeeping write.
	_ = s.pool.TouchAPIKeyLastUsed(ctx, row.KeyID, time.Now())

	return Identity{
		Subject: row.Subject,
		KeyHash: row.KeyHash,
	}, nil
}
