package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/provider"
	"horse.fit/babel/internal/tmcache"
)

// stubProvider translates by transforming unit text, and can be scripted to
// fail the first N calls or to fail specific batches outright.
type stubProvider struct {
	mu        sync.Mutex
	name      string
	calls     int
	failFirst int
	failWith  error
	translate func(unit provider.Unit) string
}

func (p *stubProvider) TranslateBatch(_ context.Context, units []provider.Unit, _ provider.Options) ([]provider.Result, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if p.failWith != nil && (p.failFirst == 0 || call <= p.failFirst) {
		return nil, p.failWith
	}

	results := make([]provider.Result, len(units))
	for i, unit := range units {
		text := "[" + unit.TargetLang + "] " + unit.Text
		if p.translate != nil {
			text = p.translate(unit)
		}
		results[i] = provider.Result{Text: text, ProviderName: p.name}
	}
	return results, nil
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) SupportedLanguages() []string { return []string{"en", "es", "de"} }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestCoordinator(t *testing.T, providers ...provider.Provider) (*Coordinator, *tmcache.Cache) {
	t.Helper()

	order := ""
	for i, p := range providers {
		if i > 0 {
			order += ","
		}
		order += p.Name()
	}
	registry := provider.NewRegistry(order)
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			t.Fatalf("register provider %s: %v", p.Name(), err)
		}
	}

	cache := tmcache.New(100, time.Minute)
	coordinator := NewCoordinator(cache, registry, zerolog.Nop(), Options{
		MaxUnitsPerCall: 2,
		MaxRetries:      3,
		RetryBaseDelay:  time.Millisecond,
	})
	coordinator.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return coordinator, cache
}

func unitsFor(texts ...string) []provider.Unit {
	units := make([]provider.Unit, len(texts))
	for i, text := range texts {
		units[i] = provider.Unit{Text: text, SourceLang: "en", TargetLang: "es", Format: provider.FormatText}
	}
	return units
}

func TestTranslatePreservesUnitOrder(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{name: "stub"}
	coordinator, _ := newTestCoordinator(t, stub)

	result, err := coordinator.Translate(context.Background(), Request{
		Units: unitsFor("one", "two", "three", "four", "five"),
	})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if len(result.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(result.Results))
	}
	for i, unit := range result.Results {
		if unit.Index != i {
			t.Fatalf("result %d carries index %d", i, unit.Index)
		}
	}
	if result.Results[2].Text != "[es] three" {
		t.Fatalf("unexpected result text: %q", result.Results[2].Text)
	}
}

func TestTranslateServesRepeatBatchFromCache(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{name: "stub"}
	coordinator, _ := newTestCoordinator(t, stub)
	req := Request{Units: unitsFor("hello")}

	if _, err := coordinator.Translate(context.Background(), req); err != nil {
		t.Fatalf("first translate failed: %v", err)
	}
	callsAfterFirst := stub.callCount()

	result, err := coordinator.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("second translate failed: %v", err)
	}
	if stub.callCount() != callsAfterFirst {
		t.Fatalf("expected cached batch to skip the provider")
	}
	if !result.Results[0].FromCache {
		t.Fatalf("expected result to be flagged as cached")
	}
	if result.Results[0].Text != "[es] hello" {
		t.Fatalf("unexpected cached text: %q", result.Results[0].Text)
	}
}

func TestTranslateSameLanguagePairIsPassThrough(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{name: "stub"}
	coordinator, _ := newTestCoordinator(t, stub)

	result, err := coordinator.Translate(context.Background(), Request{
		Units: []provider.Unit{{Text: "unchanged", SourceLang: "en", TargetLang: "en", Format: provider.FormatText}},
	})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if stub.callCount() != 0 {
		t.Fatalf("expected no provider call for a same-language pair")
	}
	if result.Results[0].Text != "unchanged" {
		t.Fatalf("expected input echoed back, got %q", result.Results[0].Text)
	}
}

func TestTranslateRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		name:      "stub",
		failFirst: 2,
		failWith:  provider.Transient(errors.New("connection reset")),
	}
	coordinator, _ := newTestCoordinator(t, stub)

	result, err := coordinator.Translate(context.Background(), Request{Units: unitsFor("hello")})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if stub.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", stub.callCount())
	}
	if result.Results[0].Text != "[es] hello" {
		t.Fatalf("unexpected result text: %q", result.Results[0].Text)
	}
}

func TestTranslateFallsBackOnPermanentFailure(t *testing.T) {
	t.Parallel()

	primary := &stubProvider{
		name:     "primary",
		failWith: provider.Permanent(errors.New("unsupported language pair")),
	}
	fallback := &stubProvider{name: "fallback"}
	coordinator, _ := newTestCoordinator(t, primary, fallback)

	result, err := coordinator.Translate(context.Background(), Request{Units: unitsFor("hello")})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if primary.callCount() != 1 {
		t.Fatalf("expected a permanent failure not to be retried, got %d calls", primary.callCount())
	}
	if result.Results[0].ProviderName != "fallback" {
		t.Fatalf("expected fallback provider to serve the unit, got %q", result.Results[0].ProviderName)
	}
}

func TestTranslateReportsPartialFailureWithIndices(t *testing.T) {
	t.Parallel()

	// Group size is 2, so units 0-1 form group one and units 2-3 group two.
	// Group two is scripted to fail.
	flaky := &scriptedProvider{
		name: "flaky",
		fn: func(units []provider.Unit) ([]provider.Result, error) {
			if units[0].Text != "one" {
				return nil, provider.Permanent(errors.New("glossary rejected"))
			}
			results := make([]provider.Result, len(units))
			for i, unit := range units {
				results[i] = provider.Result{Text: "[es] " + unit.Text, ProviderName: "flaky"}
			}
			return results, nil
		},
	}
	coordinator, _ := newTestCoordinator(t, flaky)

	_, err := coordinator.Translate(context.Background(), Request{
		Units: unitsFor("one", "two", "three", "four"),
	})

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialError, got %v", err)
	}
	if len(partial.Results) != 2 {
		t.Fatalf("expected 2 successful units, got %d", len(partial.Results))
	}
	if partial.Results[0].Index != 0 || partial.Results[1].Index != 1 {
		t.Fatalf("unexpected success indices: %+v", partial.Results)
	}
	if len(partial.Failures) != 2 {
		t.Fatalf("expected 2 failed units, got %d", len(partial.Failures))
	}
	if partial.Failures[0].Index != 2 || partial.Failures[1].Index != 3 {
		t.Fatalf("unexpected failure indices: %+v", partial.Failures)
	}
	if partial.Failures[0].Reason == "" {
		t.Fatalf("expected failure reason to be populated")
	}
}

func TestTranslateReportsTotalFailure(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		name:     "stub",
		failWith: provider.Permanent(errors.New("quota exhausted")),
	}
	coordinator, _ := newTestCoordinator(t, stub)

	_, err := coordinator.Translate(context.Background(), Request{Units: unitsFor("one", "two")})

	var total *TotalError
	if !errors.As(err, &total) {
		t.Fatalf("expected TotalError, got %v", err)
	}
	if len(total.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(total.Failures))
	}
}

func TestTranslateDoesNotCacheUnderCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	slow := &scriptedProvider{
		name: "slow",
		fn: func(units []provider.Unit) ([]provider.Result, error) {
			cancel()
			results := make([]provider.Result, len(units))
			for i, unit := range units {
				results[i] = provider.Result{Text: "[es] " + unit.Text, ProviderName: "slow"}
			}
			return results, nil
		},
	}
	coordinator, cache := newTestCoordinator(t, slow)

	units := unitsFor("hello")
	if _, err := coordinator.Translate(ctx, Request{Units: units}); err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	key := tmcache.Key(units[0], provider.Options{})
	if cache.Lookup(key) != nil {
		t.Fatalf("expected no cache write after cancellation")
	}
}

func TestTranslateSplitsBatchIntoGroups(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var sizes []int
	counting := &scriptedProvider{
		name: "counting",
		fn: func(units []provider.Unit) ([]provider.Result, error) {
			mu.Lock()
			sizes = append(sizes, len(units))
			mu.Unlock()
			results := make([]provider.Result, len(units))
			for i, unit := range units {
				results[i] = provider.Result{Text: "[es] " + unit.Text, ProviderName: "counting"}
			}
			return results, nil
		},
	}
	coordinator, _ := newTestCoordinator(t, counting)

	if _, err := coordinator.Translate(context.Background(), Request{
		Units: unitsFor("a", "b", "c", "d", "e"),
	}); err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sizes) != 3 {
		t.Fatalf("expected 3 groups for 5 units at group size 2, got %d", len(sizes))
	}
	total := 0
	for _, size := range sizes {
		if size > 2 {
			t.Fatalf("group exceeds the configured ceiling: %d", size)
		}
		total += size
	}
	if total != 5 {
		t.Fatalf("expected all 5 units dispatched, got %d", total)
	}
}

func TestTranslateRejectsEmptyBatch(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{name: "stub"}
	coordinator, _ := newTestCoordinator(t, stub)

	if _, err := coordinator.Translate(context.Background(), Request{}); err == nil {
		t.Fatalf("expected empty batch to be rejected")
	}
}

func TestChunkIndices(t *testing.T) {
	t.Parallel()

	groups := chunkIndices([]int{0, 1, 2, 3, 4, 5, 6}, 3)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if fmt.Sprint(groups[2]) != "[6]" {
		t.Fatalf("unexpected trailing group: %v", groups[2])
	}
}

// scriptedProvider delegates every batch to a closure.
type scriptedProvider struct {
	name string
	fn   func(units []provider.Unit) ([]provider.Result, error)
}

func (p *scriptedProvider) TranslateBatch(_ context.Context, units []provider.Unit, _ provider.Options) ([]provider.Result, error) {
	return p.fn(units)
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) SupportedLanguages() []string { return []string{"en", "es"} }
