package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/resilience"
)

const nominatimURL = "https://nominatim.openstreetmap.org"

// nominatimPlace is one element of the /search JSON array. Coordinates are
// strings in the response.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimProvider geocodes through the OpenStreetMap Nominatim search API.
// The public instance allows one request per second.
type NominatimProvider struct {
	cfg     providerConfig
	limiter *rate.Limiter
}

// NewNominatimProvider creates a NominatimProvider.
func NewNominatimProvider(opts ...Option) *NominatimProvider {
	cfg := newProviderConfig(nominatimURL, 1, opts)
	return &NominatimProvider{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.rps), 1),
	}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Geocode implements Provider. Only the first place is used.
func (p *NominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"format": {"json"},
		"limit":  {"1"},
		"q":      {withRegion(query, p.cfg.region)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.cfg.userAgent)

	resp, err := p.cfg.httpClient.Do(req)
	if err != nil {
		return nil, resilience.Transient("geocode: nominatim request", 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.Transient("geocode: nominatim", resp.StatusCode, statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient("geocode: nominatim read body", 0, err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return &Result{Source: p.Name()}, nil
	}

	pos, err := parsePlace(places[0])
	if err != nil {
		return nil, err
	}
	return &Result{
		Position:    pos,
		DisplayName: places[0].DisplayName,
		Source:      p.Name(),
		Matched:     true,
	}, nil
}

func parsePlace(pl nominatimPlace) (geo.Point, error) {
	lat, err := strconv.ParseFloat(pl.Lat, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(err, "geocode: nominatim lat %q", pl.Lat)
	}
	lng, err := strconv.ParseFloat(pl.Lon, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(err, "geocode: nominatim lon %q", pl.Lon)
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, eris.Errorf("geocode: nominatim returned invalid position %s", p)
	}
	return p, nil
}
