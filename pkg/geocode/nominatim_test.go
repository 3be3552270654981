package geocode

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridfinder/internal/resilience"
)

func TestNominatim_Match(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "1 Market St, Camden, New Jersey", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "gridfinder-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat":"39.9473","lon":"-75.1210","display_name":"Market Street, Camden"},
			{"lat":"0","lon":"0","display_name":"ignored"}]`)
	}, WithUserAgent("gridfinder-test"))

	r, err := p.Geocode(context.Background(), "  1 Market St, Camden ")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.InDelta(t, 39.9473, r.Position.Lat, 1e-9)
	assert.InDelta(t, -75.1210, r.Position.Lng, 1e-9)
	assert.Equal(t, "Market Street, Camden", r.DisplayName)
	assert.Equal(t, "nominatim", r.Source)
}

func TestNominatim_NoResults(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	r, err := p.Geocode(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestNominatim_RegionDisabled(t *testing.T) {
	p := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Trenton", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `[]`)
	}, WithRegion(""))

	_, err := p.Geocode(context.Background(), "Trenton")
	require.NoError(t, err)
}

func TestNominatim_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"unavailable", http.StatusServiceUnavailable, "", true},
		{"rate limited", http.StatusTooManyRequests, "", true},
		{"forbidden", http.StatusForbidden, "", false},
		{"bad json", http.StatusOK, "<html>", false},
		{"bad lat", http.StatusOK, `[{"lat":"north","lon":"-74.1"}]`, false},
		{"out of range", http.StatusOK, `[{"lat":"140","lon":"-74.1"}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestNominatim(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := p.Geocode(context.Background(), "Newark")
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}

func TestNewNominatimProvider_Defaults(t *testing.T) {
	p := NewNominatimProvider()
	assert.Equal(t, nominatimURL, p.cfg.baseURL)
	assert.Equal(t, DefaultRegion, p.cfg.region)
	assert.InDelta(t, 1.0, float64(p.limiter.Limit()), 1e-9)

	p = NewNominatimProvider(WithBaseURL("http://localhost:8080/"), WithRateLimit(5))
	assert.Equal(t, "http://localhost:8080", p.cfg.baseURL)
	assert.InDelta(t, 5.0, float64(p.limiter.Limit()), 1e-9)
}
