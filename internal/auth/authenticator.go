// Package auth validates caller credentials and attaches an identity to the
// request for the lifetime of that request only.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"horse.fit/babel/internal/credstore"
)

var (
	// ErrUnauthorized means no usable credential was presented.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means a credential was presented but did not resolve.
	ErrForbidden = errors.New("credential is not valid")
)

// AuditEvent describes one authentication outcome for the emission hook.
type AuditEvent struct {
	Subject    string
	KeyHash    string
	Allowed    bool
	Reason     string
	OccurredAt time.Time
}

// AuditHook receives authentication outcomes. Optional; must not block.
type AuditHook func(AuditEvent)

// Authenticator resolves bearer credentials through the credential store.
// Store lookups are bounded by a timeout; exceeding it fails closed.
type Authenticator struct {
	store        credstore.Store
	adminKeyHash string
	timeout      time.Duration
	audit        AuditHook
}

func New(store credstore.Store, adminKeyHash string, timeout time.Duration, audit AuditHook) *Authenticator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Authenticator{
		store:        store,
		adminKeyHash: strings.TrimSpace(adminKeyHash),
		timeout:      timeout,
		audit:        audit,
	}
}

// Authenticate resolves rawCredential to an identity. A blank credential
// yields ErrUnauthorized; an unresolvable one, or a store that errors or
// times out, yields ErrForbidden.
func (a *Authenticator) Authenticate(ctx context.Context, rawCredential string) (credstore.Identity, error) {
	credential := strings.TrimSpace(rawCredential)
	if credential == "" {
		a.emit(AuditEvent{Allowed: false, Reason: "missing credential", OccurredAt: time.Now()})
		return credstore.Identity{}, ErrUnauthorized
	}

	keyHash := credstore.HashKey(credential)

	if a.adminKeyHash != "" && VerifyAdminKey(credential, a.adminKeyHash) {
		identity := credstore.Identity{Subject: "admin", KeyHash: keyHash}
		a.emit(AuditEvent{Subject: identity.Subject, KeyHash: keyHash, Allowed: true, OccurredAt: time.Now()})
		return identity, nil
	}

	if a.store == nil {
		a.emit(AuditEvent{KeyHash: keyHash, Allowed: false, Reason: "no credential store", OccurredAt: time.Now()})
		return credstore.Identity{}, ErrForbidden
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	identity, err := a.store.ResolveKey(lookupCtx, keyHash)
	if err != nil {
		reason := "unknown key"
		if !errors.Is(err, credstore.ErrKeyNotFound) {
			reason = "store lookup failed"
		}
		a.emit(AuditEvent{KeyHash: keyHash, Allowed: false, Reason: reason, OccurredAt: time.Now()})
		return credstore.Identity{}, ErrForbidden
	}

	a.emit(AuditEvent{Subject: identity.Subject, KeyHash: keyHash, Allowed: true, OccurredAt: time.Now()})
	return identity, nil
}

func (a *Authenticator) emit(event AuditEvent) {
	if a == nil || a.audit == nil {
		return
	}
	a.audit(event)
}
