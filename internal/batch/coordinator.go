// Package batch implements the request pipeline core: cache-first
// partitioning of a batch, grouped provider dispatch with retry and
// fallback, and index-preserving merge of the results.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/language"
	"horse.fit/babel/internal/provider"
	"horse.fit/babel/internal/tmcache"
)

// Request is an ordered batch of translation units with shared options.
// Result order mirrors unit order.
type Request struct {
	Units   []provider.Unit
	Options provider.Options
}

// UnitResult is one translated unit, tagged with its original position.
type UnitResult struct {
	Index          int    `json:"index"`
	Text           string `json:"text"`
	DetectedSource string `json:"detected_source,omitempty"`
	ProviderName   string `json:"provider,omitempty"`
	FromCache      bool   `json:"from_cache,omitempty"`
}

// UnitFailure records why one unit could not be translated.
type UnitFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Result is a fully successful batch, index-aligned with the request.
type Result struct {
	Results []UnitResult
}

// PartialError carries the ordered successes alongside the failures so
// callers can decide whether partial success is acceptable.
type PartialError struct {
	Results  []UnitResult
	Failures []UnitFailure
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("batch partially failed: %d of %d units failed", len(e.Failures), len(e.Failures)+len(e.Results))
}

// TotalError means no unit of the batch could be translated.
type TotalError struct {
	Failures []UnitFailure
}

func (e *TotalError) Error() string {
	return fmt.Sprintf("batch failed: all %d units failed", len(e.Failures))
}

// Options are the coordinator's tuning knobs.
type Options struct {
	MaxUnitsPerCall int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	MaxRetryDelay   time.Duration
}

// Coordinator runs the batch pipeline against the injected cache and
// provider registry. Safe for concurrent use.
type Coordinator struct {
	cache    *tmcache.Cache
	registry *provider.Registry
	logger   zerolog.Logger
	opts     Options

	sleep func(ctx context.Context, d time.Duration) error
}

func NewCoordinator(cache *tmcache.Cache, registry *provider.Registry, logger zerolog.Logger, opts Options) *Coordinator {
	if opts.MaxUnitsPerCall < 1 {
		opts.MaxUnitsPerCall = 16
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 200 * time.Millisecond
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = 5 * time.Second
	}
	return &Coordinator{
		cache:    cache,
		registry: registry,
		logger:   logger,
		opts:     opts,
		sleep:    sleepContext,
	}
}

// Translate runs one batch. On full success it returns a Result whose
// sequence length equals the request's, index-aligned. Mixed outcomes
// return a *PartialError, an empty success set a *TotalError.
func (c *Coordinator) Translate(ctx context.Context, req Request) (*Result, error) {
	if c == nil || c.cache == nil || c.registry == nil {
		return nil, fmt.Errorf("coordinator is not initialized")
	}
	if len(req.Units) == 0 {
		return nil, fmt.Errorf("batch has no units")
	}

	results := make([]*UnitResult, len(req.Units))
	keys := make([]string, len(req.Units))
	missIndices := make([]int, 0, len(req.Units))

	for i, unit := range req.Units {
		keys[i] = tmcache.Key(unit, req.Options)

		// Translating into the source language is a pass-through: echo
		// the input rather than round-tripping it through a provider.
		if unit.SourceLang != provider.SourceAuto &&
			language.NormalizeCode(unit.SourceLang) == language.NormalizeCode(unit.TargetLang) {
			results[i] = &UnitResult{Index: i, Text: unit.Text}
			continue
		}

		if entry := c.cache.Lookup(keys[i]); entry != nil {
			results[i] = &UnitResult{
				Index:          i,
				Text:           entry.ResultText,
				DetectedSource: entry.DetectedSource,
				FromCache:      true,
			}
			continue
		}
		missIndices = append(missIndices, i)
	}

	if len(missIndices) == 0 {
		return &Result{Results: assemble(results)}, nil
	}

	// The epoch is taken before dispatch so a slow retry from this request
	// can never overwrite a result a later request already stored.
	epoch := c.cache.NextEpoch()
	groups := chunkIndices(missIndices, c.opts.MaxUnitsPerCall)

	type groupOutcome struct {
		results []provider.Result
		err     error
	}
	outcomes := make([]groupOutcome, len(groups))

	done := make(chan int, len(groups))
	for g, group := range groups {
		go func(g int, group []int) {
			units := make([]provider.Unit, len(group))
			for j, idx := range group {
				units[j] = req.Units[idx]
			}
			providerResults, err := c.translateGroup(ctx, units, req.Options)
			outcomes[g] = groupOutcome{results: providerResults, err: err}
			done <- g
		}(g, group)
	}
	for range groups {
		<-done
	}

	failures := make([]UnitFailure, 0)
	for g, group := range groups {
		outcome := outcomes[g]
		if outcome.err != nil {
			for _, idx := range group {
				failures = append(failures, UnitFailure{Index: idx, Reason: outcome.err.Error()})
			}
			continue
		}
		for j, idx := range group {
			pr := outcome.results[j]
			// Never cache under a cancelled request: provenance of a
			// result that outlived its owner is ambiguous.
			if ctx.Err() == nil {
				c.cache.Store(keys[idx], pr.Text, pr.DetectedSource, epoch)
			}
			results[idx] = &UnitResult{
				Index:          idx,
				Text:           pr.Text,
				DetectedSource: pr.DetectedSource,
				ProviderName:   pr.ProviderName,
			}
		}
	}

	successes := assemble(results)
	switch {
	case len(failures) == 0:
		return &Result{Results: successes}, nil
	case len(successes) == 0:
		return nil, &TotalError{Failures: failures}
	default:
		return nil, &PartialError{Results: successes, Failures: failures}
	}
}

// translateGroup tries each provider in the configured fallback order.
// Transient failures are retried with capped, jittered exponential backoff;
// permanent failures skip straight to the next provider.
func (c *Coordinator) translateGroup(ctx context.Context, units []provider.Unit, opts provider.Options) ([]provider.Result, error) {
	chain := c.registry.Chain()
	if len(chain) == 0 {
		return nil, fmt.Errorf("no translation providers are registered")
	}

	var lastErr error
	for _, p := range chain {
		for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			providerResults, err := p.TranslateBatch(ctx, units, opts)
			if err == nil {
				if len(providerResults) != len(units) {
					lastErr = fmt.Errorf("provider %s returned %d results for %d units", p.Name(), len(providerResults), len(units))
					break
				}
				return providerResults, nil
			}

			lastErr = err
			if !provider.IsTransient(err) {
				c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("permanent provider failure, trying next provider")
				break
			}
			if attempt == c.opts.MaxRetries {
				c.logger.Warn().Err(err).Str("provider", p.Name()).Int("attempts", attempt).Msg("provider retries exhausted")
				break
			}

			delay := c.backoffDelay(attempt)
			c.logger.Debug().Err(err).Str("provider", p.Name()).Int("attempt", attempt).Dur("delay", delay).Msg("transient provider failure, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// backoffDelay doubles the base delay per attempt, caps it, and applies
// jitter in [delay/2, delay] so concurrent groups do not retry in lockstep.
func (c *Coordinator) backoffDelay(attempt int) time.Duration {
	delay := c.opts.RetryBaseDelay << (attempt - 1)
	if delay > c.opts.MaxRetryDelay || delay <= 0 {
		delay = c.opts.MaxRetryDelay
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunkIndices(indices []int, size int) [][]int {
	groups := make([][]int, 0, (len(indices)+size-1)/size)
	for start := 0; start < len(indices); start += size {
		end := start + size
		if end > len(indices) {
			end = len(indices)
		}
		groups = append(groups, indices[start:end])
	}
	return groups
}

func assemble(results []*UnitResult) []UnitResult {
	assembled := make([]UnitResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			assembled = append(assembled, *r)
		}
	}
	return assembled
}
