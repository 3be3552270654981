package api

import (
	"net/http"
	"strconv"

	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
)

// parseState reads high_score_only, min_score and categories. min_score is
// clamped to bounds.
func parseState(r *http.Request, bounds filter.Bounds) (filter.State, error) {
	q := r.URL.Query()
	st := filter.New()

	if raw := q.Get("high_score_only"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return st, badRequest("high_score_only must be a boolean")
		}
		st.HighScoreOnly = on
	}
	if raw := q.Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return st, badRequest("min_score must be a number")
		}
		st.MinScore = bounds.Clamp(v)
	}

	sel, err := filter.ParseSelection(q.Get("categories"))
	if err != nil {
		return st, badRequest(err.Error())
	}
	st.Selection = sel
	return st, nil
}

func parsePoint(r *http.Request) (geo.Point, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return geo.Point{}, badRequest("lat must be a number")
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return geo.Point{}, badRequest("lng must be a number")
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, badRequest("lat/lng out of range")
	}
	return p, nil
}
