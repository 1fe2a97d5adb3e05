// Package credstore abstracts where API credentials live. The gateway core
// only ever sees a key fingerprint going in and an identity coming out.
package credstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a fingerprint resolves to no credential.
var ErrKeyNotFound = errors.New("api key not found")

// Identity is the opaque authenticated caller handle. It lives only for the
// duration of one request and is never persisted by the core.
type Identity struct {
	Subject string
	KeyHash string
}

// Store resolves API-key fingerprints to identities.
type Store interface {
	ResolveKey(ctx context.Context, keyHash string) (Identity, error)
}
