package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// newTestLimiter returns a limiter that never blocks.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient returns an HTTP client that sends every request whose URL
// starts with targetPrefix to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	orig := req.URL.String()
	if !strings.HasPrefix(orig, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + orig[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = parsed
	out.Host = parsed.Host
	return t.base.RoundTrip(out)
}

// newTestNominatim starts a server for h and returns a provider wired to it
// through the rewrite transport.
func newTestNominatim(t *testing.T, h http.HandlerFunc, opts ...Option) *NominatimProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithHTTPClient(newRewriteClient(srv.URL, nominatimURL))}, opts...)
	p := NewNominatimProvider(opts...)
	p.limiter = newTestLimiter()
	return p
}

// memoryCache is an in-process Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]Result
	ttls    map[string]time.Duration
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]Result{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (*Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, r *Result, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = *r
	m.ttls[key] = ttl
	m.sets++
	return nil
}
