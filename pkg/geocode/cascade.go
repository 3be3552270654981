package geocode

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/resilience"
)

// Lookup outcomes reported to an Observer.
const (
	OutcomeMatch = "match"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	OutcomeHit   = "cache_hit"
)

// Observer receives one call per provider attempt or cache hit.
type Observer func(source, outcome string)

// CascadeClient tries providers in order, each behind its own circuit
// breaker and retry policy, and caches matches and non-matches.
type CascadeClient struct {
	providers   []Provider
	breakers    []*resilience.Breaker
	cache       Cache
	ttl         time.Duration
	negativeTTL time.Duration
	region      string
	policy      resilience.Policy
	breakerOpts resilience.BreakerOptions
	observe     Observer
	concurrency int
}

// CascadeOption configures a CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache sets the cache and the lifetime of cached matches. Non-matches
// are kept for a tenth of ttl.
func WithCache(c Cache, ttl time.Duration) CascadeOption {
	return func(cc *CascadeClient) {
		if c != nil {
			cc.cache = c
		}
		cc.ttl = ttl
		cc.negativeTTL = ttl / 10
	}
}

// WithCacheRegion sets the region mixed into cache keys. It should match the
// providers' region.
func WithCacheRegion(region string) CascadeOption {
	return func(cc *CascadeClient) { cc.region = region }
}

// WithRetryPolicy sets the per-provider retry policy.
func WithRetryPolicy(p resilience.Policy) CascadeOption {
	return func(cc *CascadeClient) { cc.policy = p }
}

// WithBreakerOptions sets the options of every provider's circuit breaker.
func WithBreakerOptions(o resilience.BreakerOptions) CascadeOption {
	return func(cc *CascadeClient) { cc.breakerOpts = o }
}

// WithObserver registers a callback for lookup outcomes.
func WithObserver(o Observer) CascadeOption {
	return func(cc *CascadeClient) { cc.observe = o }
}

// WithBatchConcurrency caps parallel lookups in LookupBatch.
func WithBatchConcurrency(n int) CascadeOption {
	return func(cc *CascadeClient) {
		if n > 0 {
			cc.concurrency = n
		}
	}
}

// NewCascadeClient creates a CascadeClient over providers, tried in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:   providers,
		cache:       NoopCache{},
		ttl:         30 * 24 * time.Hour,
		negativeTTL: 3 * 24 * time.Hour,
		region:      DefaultRegion,
		policy:      resilience.DefaultPolicy(),
		observe:     func(string, string) {},
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breakers = make([]*resilience.Breaker, len(providers))
	for i, p := range providers {
		c.breakers[i] = resilience.NewBreaker(p.Name(), c.breakerOpts)
	}
	return c
}

// Lookup implements Client.
func (c *CascadeClient) Lookup(ctx context.Context, query string) (*Result, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, eris.Wrap(model.ErrLookupEmpty, "geocode: empty query")
	}
	if len(c.providers) == 0 {
		return nil, eris.Wrap(model.ErrLookupFailed, "geocode: no providers configured")
	}

	key := CacheKey(q, c.region)
	if cached, ok := c.cached(ctx, key); ok {
		c.observe("cache", OutcomeHit)
		if !cached.Matched {
			return nil, eris.Wrapf(model.ErrLookupEmpty, "geocode: no match for %q (cached)", q)
		}
		return cached, nil
	}

	var failures []error
	answered := false
	for i, p := range c.providers {
		r, err := resilience.Call(ctx, c.breakers[i], func(ctx context.Context) (*Result, error) {
			return resilience.Retry(ctx, c.policy, p.Name(), func(ctx context.Context) (*Result, error) {
				return p.Geocode(ctx, q)
			})
		})
		if err != nil {
			c.observe(p.Name(), OutcomeError)
			zap.L().Warn("geocode: provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			failures = append(failures, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if r != nil && r.Matched {
			c.observe(p.Name(), OutcomeMatch)
			c.store(ctx, key, r, c.ttl)
			return r, nil
		}
		c.observe(p.Name(), OutcomeEmpty)
		answered = true
	}

	if answered {
		if len(failures) == 0 {
			c.store(ctx, key, &Result{Source: "cascade"}, c.negativeTTL)
		}
		return nil, eris.Wrapf(model.ErrLookupEmpty, "geocode: no match for %q", q)
	}
	return nil, eris.Wrapf(model.ErrLookupFailed, "geocode: lookup %q: %v", q, errors.Join(failures...))
}

func (c *CascadeClient) cached(ctx context.Context, key string) (*Result, bool) {
	r, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok || r == nil {
		return nil, false
	}
	zap.L().Debug("geocode: cache hit", zap.String("key", key[:12]), zap.Bool("matched", r.Matched))
	return r, true
}

func (c *CascadeClient) store(ctx context.Context, key string, r *Result, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, r, ttl); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.Error(err))
	}
}

// BreakerStates reports each provider's circuit breaker state by name.
func (c *CascadeClient) BreakerStates() map[string]resilience.BreakerState {
	states := make(map[string]resilience.BreakerState, len(c.breakers))
	for _, b := range c.breakers {
		states[b.Name()] = b.State()
	}
	return states
}

// BatchResult is the outcome of one query in LookupBatch.
type BatchResult struct {
	Query  string
	Result *Result
	Err    error
}

// LookupBatch resolves queries concurrently. Individual failures are reported
// per query and never fail the batch; only ctx cancellation stops it early.
func (c *CascadeClient) LookupBatch(ctx context.Context, queries []string) []BatchResult {
	results := make([]BatchResult, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, q := range queries {
		eg.Go(func() error {
			r, err := c.Lookup(gCtx, q)
			results[i] = BatchResult{Query: q, Result: r, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
