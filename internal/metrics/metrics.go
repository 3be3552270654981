// Package metrics exposes Prometheus collectors for ranking, geocoding and
// dataset loading.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/model"
)

const namespace = "gridfinder"

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeNotReady     = "not_ready"
	OutcomeNoCandidates = "no_candidates"
	OutcomeLookupEmpty  = "lookup_empty"
	OutcomeLookupFailed = "lookup_failed"
	OutcomeError        = "error"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the default one. The Observe methods are no-ops on a nil
// *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	RankRequests   *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
	RankDurationMs prometheus.Histogram
	Lookups        *prometheus.CounterVec
	PointsLoaded   prometheus.Gauge
	PointsDropped  *prometheus.GaugeVec
	LoadsTotal     *prometheus.CounterVec
}

// New creates and registers every collector, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Total number of rank requests by surface",
		}, []string{"surface"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Request outcomes by operation and error kind",
		}, []string{"operation", "outcome"}),
		RankDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_ms",
			Help:      "Rank duration in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500},
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocoder provider results by source and outcome",
		}, []string{"source", "outcome"}),
		PointsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_points",
			Help:      "Number of admitted grid points",
		}),
		PointsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_dropped_points",
			Help:      "Features dropped at load by reason",
		}, []string{"reason"}),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.RankRequests,
		m.Outcomes,
		m.RankDurationMs,
		m.Lookups,
		m.PointsLoaded,
		m.PointsDropped,
		m.LoadsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRank records one rank call made through surface, such as "api".
func (m *Metrics) ObserveRank(surface string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RankRequests.WithLabelValues(surface).Inc()
	m.RankDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	m.ObserveOutcome("rank", err)
}

// ObserveOutcome counts the result of operation by error kind.
func (m *Metrics) ObserveOutcome(operation string, err error) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveLookup counts one geocoder provider result. Its signature matches
// geocode.Observer.
func (m *Metrics) ObserveLookup(source, outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(source, outcome).Inc()
}

// ObserveLoad records a finished dataset load.
func (m *Metrics) ObserveLoad(res candidate.LoadResult, total int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LoadsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.LoadsTotal.WithLabelValues(OutcomeOK).Inc()
	m.PointsLoaded.Set(float64(total))
	for reason, n := range res.Dropped {
		m.PointsDropped.WithLabelValues(reason).Set(float64(n))
	}
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case eris.Is(err, model.ErrNotReady):
		return OutcomeNotReady
	case eris.Is(err, model.ErrNoCandidates):
		return OutcomeNoCandidates
	case eris.Is(err, model.ErrLookupEmpty):
		return OutcomeLookupEmpty
	case eris.Is(err, model.ErrLookupFailed):
		return OutcomeLookupFailed
	default:
		return OutcomeError
	}
}
