// Package ratelimit provides per-identity fixed-window request accounting.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// LimitExceededError reports a rejected admission together with the time
// remaining until the identity's window resets.
type LimitExceededError struct {
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

type window struct {
	start time.Time
	count int
}

// Limiter admits up to maxRequests per window per identity. The counter
// increment and window rollover happen under one lock, so two concurrent
// admits can never both observe the same pre-increment count.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	windowSize  time.Duration
	maxRequests int

	now func() time.Time
}

func New(windowSize time.Duration, maxRequests int) *Limiter {
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &Limiter{
		windows:     make(map[string]*window),
		windowSize:  windowSize,
		maxRequests: maxRequests,
		now:         time.Now,
	}
}

// Admit records one request for identity. It returns nil when the request
// fits in the current window and a *LimitExceededError otherwise.
func (l *Limiter) Admit(identity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[identity]
	if !ok || now.Sub(w.start) >= l.windowSize {
		l.windows[identity] = &window{start: now, count: 1}
		return nil
	}

	if w.count >= l.maxRequests {
		return &LimitExceededError{RetryAfter: w.start.Add(l.windowSize).Sub(now)}
	}

	w.count++
	return nil
}

// Reset drops all accounting state. Intended for tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
