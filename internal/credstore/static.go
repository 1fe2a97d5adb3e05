package credstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Static resolves keys from a fixed in-memory list. Used when no database
// is configured, and in tests.
type Static struct {
	byHash map[string]Identity
}

// NewStatic builds a static store from raw API keys. The subject of each
// identity is a short prefix of the key fingerprint.
func NewStatic(rawKeys []string) *Static {
	byHash := make(map[string]Identity, len(rawKeys))
	for _, raw := range rawKeys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		hash := HashKey(key)
		byHash[hash] = Identity{
			Subject: fmt.Sprintf("key-%s", hash[:12]),
			KeyHash: hash,
		}
	}
	return &Static{byHash: byHash}
}

func (s *Static) ResolveKey(_ context.Context, keyHash string) (Identity, error) {
	if s == nil {
		return Identity{}, ErrKeyNotFound
	}
	identity, ok := s.byHash[strings.TrimSpace(keyHash)]
	if !ok {
		return Identity{}, ErrKeyNotFound
	}
	return identity, nil
}

// Len reports how many keys are registered.
func (s *Static) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byHash)
}

// HashKey computes the SHA-256 hex fingerprint of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
