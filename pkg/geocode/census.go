package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/resilience"
)

const (
	censusURL       = "https://geocoding.geo.census.gov"
	censusOneLine   = "/geocoder/locations/onelineaddress"
	censusBenchmark = "Public_AR_Current"
)

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// CensusProvider geocodes through the US Census one-line address API. It only
// resolves street addresses, so it serves as a fallback behind Nominatim.
type CensusProvider struct {
	cfg     providerConfig
	limiter *rate.Limiter
}

// NewCensusProvider creates a CensusProvider.
func NewCensusProvider(opts ...Option) *CensusProvider {
	cfg := newProviderConfig(censusURL, 10, opts)
	return &CensusProvider{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.rps), int(max(cfg.rps, 1))),
	}
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {withRegion(query, p.cfg.region)},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.baseURL+censusOneLine+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.cfg.userAgent)

	resp, err := p.cfg.httpClient.Do(req)
	if err != nil {
		return nil, resilience.Transient("geocode: census request", 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: census returned status %d", resp.StatusCode)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.Transient("geocode: census", resp.StatusCode, statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient("geocode: census read body", 0, err)
	}

	var cr censusResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}
	if len(cr.Result.AddressMatches) == 0 {
		return &Result{Source: p.Name()}, nil
	}

	m := cr.Result.AddressMatches[0]
	return &Result{
		Position:    geo.Point{Lat: m.Coordinates.Y, Lng: m.Coordinates.X},
		DisplayName: m.MatchedAddress,
		Source:      p.Name(),
		Matched:     true,
	}, nil
}
