package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/config"
	"github.com/sells-group/gridfinder/internal/db"
	"github.com/sells-group/gridfinder/internal/fetcher"
	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/metrics"
	"github.com/sells-group/gridfinder/internal/ranking"
	"github.com/sells-group/gridfinder/internal/resilience"
	"github.com/sells-group/gridfinder/internal/store"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// appEnv holds the dataset, ranking engine and geocoder shared by the
// serve/rank/points/search/explore/export commands.
type appEnv struct {
	Store    *candidate.Store
	Engine   *ranking.Engine
	Bounds   filter.Bounds
	Geocoder *geocode.CascadeClient // nil unless requested
	Cache    store.Cache            // nil unless Geocoder is set
	Metrics  *metrics.Metrics       // nil unless exported by serve
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

type envOptions struct {
	geocoder bool
	// metrics is only worth collecting when a /metrics endpoint serves it.
	metrics bool
}

// initEnv validates config and builds the environment. The dataset is not
// loaded; call loadDataset or Store.LoadAsync.
func initEnv(ctx context.Context, mode string, opts envOptions) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{
		Store:   candidate.NewStore(),
		Engine:  ranking.New(ranking.WithTopN(cfg.Filter.TopN)),
		Bounds:  filter.Bounds{Min: cfg.Filter.SliderMin, Max: cfg.Filter.SliderMax},
	}
	if opts.metrics {
		env.Metrics = metrics.New()
	}

	if opts.geocoder {
		cache, err := openCache(ctx, cfg.Geocode)
		if err != nil {
			return nil, err
		}
		env.Cache = cache
		env.Geocoder = newGeocoder(cfg.Geocode, cache, env.Metrics)
	}
	return env, nil
}

// datasetLoader builds the loader for the configured dataset source.
func datasetLoader(dc config.DatasetConfig) candidate.LoaderFunc {
	dl := fetcher.NewMux(
		fetcher.HTTPOptions{Timeout: dc.Timeout(), RequestsPerSecond: dc.RequestsPerSecond},
		fetcher.FTPOptions{Timeout: dc.Timeout()},
	)
	return candidate.NewLoader(candidate.Source{Location: dc.Source, Format: dc.Format}, dl)
}

// loadDataset loads the dataset synchronously and records load metrics.
func loadDataset(ctx context.Context, env *appEnv) (candidate.LoadResult, error) {
	if cfg.Dataset.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Dataset.Timeout())
		defer cancel()
	}
	res, err := env.Store.LoadFrom(ctx, datasetLoader(cfg.Dataset))
	env.Metrics.ObserveLoad(res, env.Store.Len(), err)
	return res, err
}

func openCache(ctx context.Context, gc config.GeocodeConfig) (store.Cache, error) {
	c, err := store.Open(ctx, store.Options{
		Backend: gc.Cache,
		DSN:     gc.CacheDSN,
		Table:   gc.CacheTable,
		Pool:    db.PoolConfig{MaxConns: 4},
	})
	if err != nil {
		return nil, eris.Wrap(err, "open geocode cache")
	}
	return c, nil
}

// newGeocoder builds the provider cascade: the configured primary provider,
// then the Census fallback when enabled.
func newGeocoder(gc config.GeocodeConfig, cache geocode.Cache, m *metrics.Metrics) *geocode.CascadeClient {
	common := []geocode.Option{
		geocode.WithRegion(gc.Region),
		geocode.WithUserAgent(gc.UserAgent),
		geocode.WithTimeout(gc.Timeout()),
	}

	var providers []geocode.Provider
	switch gc.Provider {
	case "census":
		providers = append(providers, geocode.NewCensusProvider(
			append(common, geocode.WithBaseURL(gc.CensusURL), geocode.WithRateLimit(gc.RateLimit))...))
	default:
		providers = append(providers, geocode.NewNominatimProvider(
			append(common, geocode.WithBaseURL(gc.BaseURL), geocode.WithRateLimit(gc.RateLimit))...))
		if gc.CensusFallback {
			providers = append(providers, geocode.NewCensusProvider(
				append(common, geocode.WithBaseURL(gc.CensusURL))...))
		}
	}

	policy := resilience.DefaultPolicy()
	if gc.RetryAttempts > 0 {
		policy.Attempts = gc.RetryAttempts
	}

	opts := []geocode.CascadeOption{
		geocode.WithCache(cache, gc.CacheTTL()),
		geocode.WithCacheRegion(gc.Region),
		geocode.WithRetryPolicy(policy),
		geocode.WithBreakerOptions(resilience.BreakerOptions{
			Threshold: gc.BreakerThreshold,
			Cooldown:  gc.BreakerCooldown(),
			OnStateChange: func(name string, from, to resilience.BreakerState) {
				zap.L().Warn("geocode: circuit breaker state change",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		geocode.WithBatchConcurrency(gc.BatchConcurrency),
	}
	if m != nil {
		opts = append(opts, geocode.WithObserver(m.ObserveLookup))
	}
	return geocode.NewCascadeClient(providers, opts...)
}
