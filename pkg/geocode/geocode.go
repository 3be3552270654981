// Package geocode resolves free-text addresses to coordinates through
// OpenStreetMap Nominatim with a Census Geocoder fallback.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sells-group/gridfinder/internal/geo"
)

// DefaultRegion is appended to every query so lookups stay inside the
// dataset's coverage.
const DefaultRegion = "New Jersey"

// Result is a resolved address.
type Result struct {
	Position    geo.Point `json:"position" yaml:"position"`
	DisplayName string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	// Source names the provider that produced the result, or "cache".
	Source  string `json:"source" yaml:"source"`
	Matched bool   `json:"matched" yaml:"matched"`
}

// Client resolves a free-text query. Implementations return an error matching
// model.ErrLookupEmpty when nothing matched and model.ErrLookupFailed when
// the lookup itself failed.
type Client interface {
	Lookup(ctx context.Context, query string) (*Result, error)
}

// Provider is one geocoding backend. A provider reports "no match" as a
// Result with Matched false and reserves errors for transport or parse
// failures.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Option configures a provider.
type Option func(*providerConfig)

type providerConfig struct {
	baseURL    string
	region     string
	userAgent  string
	httpClient *http.Client
	rps        float64
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(c *providerConfig) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRegion sets the region suffix added to every query. An empty region
// disables the suffix.
func WithRegion(region string) Option {
	return func(c *providerConfig) { c.region = strings.TrimSpace(region) }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *providerConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *providerConfig) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *providerConfig) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *providerConfig) {
		if rps > 0 {
			c.rps = rps
		}
	}
}

func newProviderConfig(baseURL string, rps float64, opts []Option) providerConfig {
	c := providerConfig{
		baseURL:    baseURL,
		region:     DefaultRegion,
		userAgent:  "gridfinder/1.0 (+https://github.com/sells-group/gridfinder)",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		rps:        rps,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// withRegion appends the region to a trimmed query.
func withRegion(query, region string) string {
	query = strings.TrimSpace(query)
	if region == "" {
		return query
	}
	return query + ", " + region
}
