package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// WithBreaker wraps a provider in a circuit breaker. A run of failures
// opens the circuit; while open, calls fail fast with a transient error so
// the coordinator moves on to the next provider instead of waiting out
// another backend timeout.
func WithBreaker(p Provider) Provider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    p.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Permanent errors describe the request, not backend health.
			if err == nil {
				return true
			}
			var pe *Error
			if errors.As(err, &pe) {
				return pe.Kind == KindPermanent
			}
			return false
		},
	})
	return &breakerProvider{inner: p, cb: cb}
}

type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerProvider) Name() string {
	return b.inner.Name()
}

func (b *breakerProvider) SupportedLanguages() []string {
	return b.inner.SupportedLanguages()
}

func (b *breakerProvider) TranslateBatch(ctx context.Context, units []Unit, opts Options) ([]Result, error) {
	value, err := b.cb.Execute(func() (any, error) {
		return b.inner.TranslateBatch(ctx, units, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, Transient(err)
		}
		return nil, err
	}

	results, ok := value.([]Result)
	if !ok {
		return nil, Transient(errors.New("unexpected breaker payload"))
	}
	return results, nil
}
