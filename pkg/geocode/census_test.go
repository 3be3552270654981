package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridfinder/internal/resilience"
)

func newTestCensus(t *testing.T, h http.HandlerFunc) *CensusProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p := NewCensusProvider(WithHTTPClient(newRewriteClient(srv.URL, censusURL)))
	p.limiter = newTestLimiter()
	return p
}

func TestCensus_Match(t *testing.T) {
	p := newTestCensus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, censusOneLine, r.URL.Path)
		assert.Equal(t, "125 W State St, Trenton, New Jersey", r.URL.Query().Get("address"))
		assert.Equal(t, censusBenchmark, r.URL.Query().Get("benchmark"))

		_, _ = io.WriteString(w, `{"result":{"addressMatches":[{
			"coordinates":{"x":-74.7699,"y":40.2206},
			"matchedAddress":"125 W STATE ST, TRENTON, NJ, 08608"}]}}`)
	})

	r, err := p.Geocode(context.Background(), "125 W State St, Trenton")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.InDelta(t, 40.2206, r.Position.Lat, 1e-9)
	assert.InDelta(t, -74.7699, r.Position.Lng, 1e-9)
	assert.Equal(t, "census", r.Source)
}

func TestCensus_NoMatch(t *testing.T) {
	p := newTestCensus(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"addressMatches":[]}}`)
	})

	r, err := p.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestCensus_ServerError(t *testing.T) {
	p := newTestCensus(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Geocode(context.Background(), "Trenton")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
