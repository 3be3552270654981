// Package api serves the grid dataset over HTTP. Every request builds its own
// filter state; the server holds no per-user session.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/metrics"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// Dataset is the read side of candidate.Store.
type Dataset interface {
	ranking.Source
	State() candidate.State
	Stats() candidate.Stats
}

// Server holds the handler dependencies.
type Server struct {
	data     Dataset
	engine   *ranking.Engine
	geocoder geocode.Client
	metrics  *metrics.Metrics
	bounds   filter.Bounds
	origins  []string
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithEngine sets the ranking engine.
func WithEngine(e *ranking.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithGeocoder enables /v1/search.
func WithGeocoder(c geocode.Client) Option {
	return func(s *Server) { s.geocoder = c }
}

// WithMetrics records request metrics and mounts /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithBounds sets the range min_score is clamped to.
func WithBounds(b filter.Bounds) Option {
	return func(s *Server) { s.bounds = b }
}

// WithCORSOrigins sets the allowed CORS origins. Default: all.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithRequestTimeout bounds each request, including geocoder calls. Zero or
// less disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates a Server over data.
func NewServer(data Dataset, opts ...Option) *Server {
	s := &Server{
		data:    data,
		engine:  ranking.New(),
		bounds:  filter.DefaultBounds(),
		origins: []string{"*"},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/points", s.handlePoints)
		r.Get("/rank", s.handleRank)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	state := s.data.State()
	status := http.StatusOK
	if state != candidate.StateReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": state.String()})
}

type pointsResponse struct {
	Threshold float64             `json:"threshold"`
	Count     int                 `json:"count"`
	Points    []model.ScoredPoint `json:"points"`
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	st, err := parseState(r, s.bounds)
	if err != nil {
		s.fail(w, r, "points", err)
		return
	}
	points, err := ranking.Filtered(s.data, st)
	if err != nil {
		s.fail(w, r, "points", err)
		return
	}
	s.observe("points", nil)
	writeJSON(w, http.StatusOK, pointsResponse{
		Threshold: st.EffectiveThreshold(),
		Count:     len(points),
		Points:    points,
	})
}

type rankResponse struct {
	*ranking.Result
	Area string `json:"area"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	q, err := parsePoint(r)
	if err != nil {
		s.fail(w, r, "rank", err)
		return
	}
	st, err := parseState(r, s.bounds)
	if err != nil {
		s.fail(w, r, "rank", err)
		return
	}

	start := time.Now()
	res, err := s.rank(r.Context(), st, q)
	if s.metrics != nil {
		s.metrics.ObserveRank("api", start, err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{Result: res, Area: geo.ClassifyArea(q)})
}

type searchResponse struct {
	Location *geocode.Result `json:"location"`
	Area     string          `json:"area"`
	Ranking  *ranking.Result `json:"ranking"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		s.fail(w, r, "search", badRequest("q is required"))
		return
	}
	st, err := parseState(r, s.bounds)
	if err != nil {
		s.fail(w, r, "search", err)
		return
	}
	if s.geocoder == nil {
		s.fail(w, r, "search", eris.Wrap(model.ErrLookupFailed, "api: search is not configured"))
		return
	}

	loc, err := s.geocoder.Lookup(r.Context(), text)
	if err != nil {
		s.fail(w, r, "search", err)
		return
	}
	res, err := s.rank(r.Context(), st, loc.Position)
	if err != nil {
		s.fail(w, r, "search", err)
		return
	}
	s.observe("search", nil)
	writeJSON(w, http.StatusOK, searchResponse{
		Location: loc,
		Area:     geo.ClassifyArea(loc.Position),
		Ranking:  res,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Stats())
}

func (s *Server) rank(ctx context.Context, st filter.State, q geo.Point) (*ranking.Result, error) {
	if area := geo.ClassifyArea(q); area != geo.AreaInside {
		zap.L().Info("api: query point outside service area",
			zap.String("request_id", RequestIDFrom(ctx)),
			zap.String("point", q.String()),
			zap.String("area", area),
		)
	}
	return s.engine.Rank(s.data, st, q)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.observe(op, err)
	writeError(w, r, err)
}

func (s *Server) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOutcome(op, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
