package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/metrics"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

type fakeDataset struct {
	state  candidate.State
	points []model.ScoredPoint
}

func (d *fakeDataset) Points() ([]model.ScoredPoint, error) {
	if d.state != candidate.StateReady {
		return nil, eris.Wrap(model.ErrNotReady, "fake: not ready")
	}
	return d.points, nil
}

func (d *fakeDataset) State() candidate.State { return d.state }

func (d *fakeDataset) Stats() candidate.Stats {
	return candidate.Stats{State: d.state.String(), Count: len(d.points)}
}

type fakeGeocoder struct {
	res *geocode.Result
	err error
}

func (f fakeGeocoder) Lookup(context.Context, string) (*geocode.Result, error) {
	return f.res, f.err
}

var trenton = geo.Point{Lat: 40.2206, Lng: -74.7699}

func readyDataset() *fakeDataset {
	return &fakeDataset{
		state: candidate.StateReady,
		points: []model.ScoredPoint{
			model.NewScoredPoint(1, geo.Point{Lat: 40.7357, Lng: -74.1724}, 4.5, model.POIFlags{Park: true}),
			model.NewScoredPoint(2, geo.Point{Lat: 40.2171, Lng: -74.7429}, 3.2, model.POIFlags{}),
			model.NewScoredPoint(3, geo.Point{Lat: 40.3573, Lng: -74.6672}, 4.1, model.POIFlags{Museum: true}),
		},
	}
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, NewServer(readyDataset()).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	d := &fakeDataset{state: candidate.StateLoading}
	h := NewServer(d).Handler()

	rec, body := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "loading", body["status"])

	d.state = candidate.StateReady
	rec, body = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestPoints(t *testing.T) {
	h := NewServer(readyDataset()).Handler()

	rec, body := get(t, h, "/v1/points")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])

	rec, body = get(t, h, "/v1/points?high_score_only=true&min_score=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, body["threshold"])
	assert.EqualValues(t, 2, body["count"])

	rec, body = get(t, h, "/v1/points?min_score=99")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, body["threshold"], "slider is clamped")
	assert.EqualValues(t, 0, body["count"], "redraw with nothing to draw is not an error")
}

func TestRank(t *testing.T) {
	h := NewServer(readyDataset()).Handler()

	rec, body := get(t, h, "/v1/rank?lat=40.2206&lng=-74.7699&high_score_only=1&categories=park,museum")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, geo.AreaInside, body["area"])
	assert.EqualValues(t, 2, body["candidates"])

	nearest := body["nearest"].(map[string]any)
	assert.EqualValues(t, 3, nearest["point"].(map[string]any)["id"])
	assert.Equal(t, "Your nearest grid center", nearest["label"])

	top := body["top_n"].([]any)
	require.Len(t, top, 2)
	first := top[0].(map[string]any)
	assert.Equal(t, "High-score center #1", first["label"])
	assert.Equal(t, []any{"Park: N", "Museum: Y"}, first["categories"])
}

func TestRank_Errors(t *testing.T) {
	h := NewServer(readyDataset()).Handler()

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing lat", "/v1/rank?lng=-74.7", http.StatusBadRequest, "bad_request"},
		{"out of range", "/v1/rank?lat=95&lng=-74.7", http.StatusBadRequest, "bad_request"},
		{"bad toggle", "/v1/rank?lat=40&lng=-74.7&high_score_only=maybe", http.StatusBadRequest, "bad_request"},
		{"bad category", "/v1/rank?lat=40&lng=-74.7&categories=bakery", http.StatusBadRequest, "bad_request"},
		{"no candidates", "/v1/rank?lat=40&lng=-74.7&min_score=5", http.StatusNotFound, "no_candidates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
		})
	}
}

func TestRank_NotReady(t *testing.T) {
	h := NewServer(&fakeDataset{state: candidate.StateLoading}).Handler()
	rec, body := get(t, h, "/v1/rank?lat=40.2&lng=-74.7")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Grid data is still loading. Try again in a moment.", body["message"])
}

func TestSearch(t *testing.T) {
	gc := fakeGeocoder{res: &geocode.Result{Position: trenton, DisplayName: "Trenton, NJ", Source: "nominatim", Matched: true}}
	h := NewServer(readyDataset(), WithGeocoder(gc)).Handler()

	rec, body := get(t, h, "/v1/search?q=Trenton")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, geo.AreaInside, body["area"])
	loc := body["location"].(map[string]any)
	assert.Equal(t, "Trenton, NJ", loc["display_name"])
	ranking := body["ranking"].(map[string]any)
	assert.EqualValues(t, 2, ranking["nearest"].(map[string]any)["point"].(map[string]any)["id"])
}

// ctxGeocoder fails once the request context is done.
type ctxGeocoder struct{ res *geocode.Result }

func (g ctxGeocoder) Lookup(ctx context.Context, _ string) (*geocode.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(model.ErrLookupFailed, err.Error())
	}
	return g.res, nil
}

func TestSearch_ZeroRequestTimeoutDisablesBound(t *testing.T) {
	gc := ctxGeocoder{res: &geocode.Result{Position: trenton, Source: "nominatim", Matched: true}}
	h := NewServer(readyDataset(), WithGeocoder(gc), WithRequestTimeout(0)).Handler()

	rec, _ := get(t, h, "/v1/search?q=Trenton")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		gc     geocode.Client
		target string
		status int
	}{
		{"missing q", fakeGeocoder{}, "/v1/search", http.StatusBadRequest},
		{"not configured", nil, "/v1/search?q=x", http.StatusBadGateway},
		{"empty", fakeGeocoder{err: eris.Wrap(model.ErrLookupEmpty, "none")}, "/v1/search?q=zz", http.StatusNotFound},
		{"failed", fakeGeocoder{err: eris.Wrap(model.ErrLookupFailed, "timeout")}, "/v1/search?q=zz", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.gc != nil {
				opts = append(opts, WithGeocoder(tt.gc))
			}
			rec, _ := get(t, NewServer(readyDataset(), opts...).Handler(), tt.target)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestStats(t *testing.T) {
	rec, body := get(t, NewServer(readyDataset()).Handler(), "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, "ready", body["state"])
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv := httptest.NewServer(NewServer(readyDataset(), WithMetrics(m)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/rank?lat=40.2206&lng=-74.7699")
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gridfinder_rank_requests_total{surface="api"} 1`)
	assert.Contains(t, string(data), `gridfinder_outcomes_total{operation="rank",outcome="ok"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	rec, _ := get(t, NewServer(readyDataset()).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	NewServer(readyDataset()).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	h := NewServer(readyDataset(), WithCORSOrigins([]string{"https://maps.example.com"})).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://maps.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	status, code := StatusFor(eris.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}
