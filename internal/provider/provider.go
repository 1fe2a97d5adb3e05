package provider

import (
	"context"
	"errors"
	"fmt"
)

const (
	// FormatText marks plain-text units.
	FormatText = "text"
	// FormatHTML marks units whose markup must survive translation.
	FormatHTML = "html"

	// SourceAuto asks the provider to detect the source language per unit.
	SourceAuto = "auto"
)

// Unit is one logical text to translate. Immutable once created.
type Unit struct {
	Text       string
	SourceLang string // ISO 639-1 code, or SourceAuto
	TargetLang string
	Format     string // FormatText or FormatHTML
}

// Options are shared across all units of one batch.
type Options struct {
	GlossaryID       string
	Formality        string
	PreserveEntities bool
}

// Result is the provider output for one unit.
type Result struct {
	Text           string
	DetectedSource string // set when the unit requested SourceAuto
	ProviderName   string
	LatencyMs      int64
}

// Provider translates batches of text units. Implementations cover one
// backend each (cloud API, self-hosted endpoint, on-device engine) behind
// the same signature so callers never branch on provider identity.
type Provider interface {
	TranslateBatch(ctx context.Context, units []Unit, opts Options) ([]Result, error)
	Name() string
	SupportedLanguages() []string
}

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind string

const (
	// KindTransient covers timeouts, 5xx responses and connection resets.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers bad language pairs, exhausted quota and
	// malformed glossaries. Never retried.
	KindPermanent ErrorKind = "permanent"
)

// Error is the uniform provider failure type.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transient wraps err as a retryable provider error.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

// Permanent wraps err as a non-retryable provider error.
func Permanent(err error) *Error {
	return &Error{Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err is a retryable provider error. Errors that
// are not provider errors at all (for example a plain context deadline) are
// treated as transient so transport hiccups stay retryable.
func IsTransient(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	return true
}
