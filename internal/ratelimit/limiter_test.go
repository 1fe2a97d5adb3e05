package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAdmitUpToLimitThenReject(t *testing.T) {
	t.Parallel()

	limiter := New(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if err := limiter.Admit("caller"); err != nil {
			t.Fatalf("admit %d failed: %v", i, err)
		}
	}

	err := limiter.Admit("caller")
	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitExceededError, got %v", err)
	}
	if limitErr.RetryAfter <= 0 || limitErr.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry-after: %s", limitErr.RetryAfter)
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := New(time.Minute, 1)

	if err := limiter.Admit("alpha"); err != nil {
		t.Fatalf("first alpha admit failed: %v", err)
	}
	if err := limiter.Admit("beta"); err != nil {
		t.Fatalf("beta admit should not share alpha's window: %v", err)
	}
	if err := limiter.Admit("alpha"); err == nil {
		t.Fatalf("expected second alpha admit to be rejected")
	}
}

func TestWindowRolloverResetsCount(t *testing.T) {
	t.Parallel()

	current := time.Unix(1_700_000_000, 0)
	limiter := New(time.Minute, 1)
	limiter.now = func() time.Time { return current }

	if err := limiter.Admit("caller"); err != nil {
		t.Fatalf("first admit failed: %v", err)
	}
	if err := limiter.Admit("caller"); err == nil {
		t.Fatalf("expected rejection inside the window")
	}

	current = current.Add(time.Minute)
	if err := limiter.Admit("caller"); err != nil {
		t.Fatalf("expected admit after window rollover: %v", err)
	}
}

func TestConcurrentAdmitsNeverExceedLimit(t *testing.T) {
	t.Parallel()

	const limit = 50
	limiter := New(time.Minute, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Admit("caller"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("expected exactly %d admits, got %d", limit, admitted)
	}
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	limiter := New(time.Minute, 1)
	if err := limiter.Admit("caller"); err != nil {
		t.Fatalf("first admit failed: %v", err)
	}
	limiter.Reset()
	if err := limiter.Admit("caller"); err != nil {
		t.Fatalf("expected admit after reset: %v", err)
	}
}
