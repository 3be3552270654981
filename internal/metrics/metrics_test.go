package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/model"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{eris.Wrap(model.ErrNotReady, "x"), OutcomeNotReady},
		{eris.Wrap(model.ErrNoCandidates, "x"), OutcomeNoCandidates},
		{eris.Wrap(model.ErrLookupEmpty, "x"), OutcomeLookupEmpty},
		{eris.Wrap(model.ErrLookupFailed, "x"), OutcomeLookupFailed},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestObserveRank(t *testing.T) {
	m := New()
	m.ObserveRank("api", time.Now(), nil)
	m.ObserveRank("api", time.Now(), model.ErrNoCandidates)
	m.ObserveRank("cli", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RankRequests.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankRequests.WithLabelValues("cli")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("rank", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("rank", OutcomeNoCandidates)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RankDurationMs))
}

func TestObserveLookup(t *testing.T) {
	m := New()
	m.ObserveLookup("nominatim", "match")
	m.ObserveLookup("nominatim", "match")
	m.ObserveLookup("census", "error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lookups.WithLabelValues("nominatim", "match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("census", "error")))
}

func TestObserveLoad(t *testing.T) {
	m := New()
	m.ObserveLoad(candidate.LoadResult{
		Read:    5,
		Loaded:  3,
		Dropped: map[string]int{candidate.DropLowScore: 2},
	}, 3, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PointsLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PointsDropped.WithLabelValues(candidate.DropLowScore)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(OutcomeOK)))

	m.ObserveLoad(candidate.LoadResult{}, 0, errors.New("fetch failed"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PointsLoaded), "failed load keeps the last count")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRank("api", time.Now(), nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `gridfinder_rank_requests_total{surface="api"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.ObserveLookup("nominatim", "match")
	assert.Zero(t, testutil.ToFloat64(b.Lookups.WithLabelValues("nominatim", "match")))
}

func TestNilMetricsDiscards(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRank("api", time.Now(), nil)
		m.ObserveOutcome("search", nil)
		m.ObserveLookup("nominatim", "match")
		m.ObserveLoad(candidate.LoadResult{}, 0, nil)
	})
}
