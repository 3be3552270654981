// Package candidate loads the scored grid-cell dataset and holds it as an
// immutable, ordered store behind a readiness gate.
package candidate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
)

// Feature is one raw input record, independent of the file format it came from.
type Feature struct {
	// Malformed marks a record the decoder could not parse.
	Malformed bool
	// Geometry is nil when the record has no geometry.
	Geometry   geom.T
	Properties map[string]any
}

// Drop reasons reported in LoadResult.Dropped.
const (
	DropNoGeometry   = "no_geometry"
	DropNotPoint     = "not_point"
	DropBadScore     = "non_numeric_score"
	DropLowScore     = "below_min_score"
	DropDuplicateID  = "duplicate_id"
	DropMalformedRaw = "malformed"
)

// admit applies the admission rules to the feature at position idx. It
// returns the built point, or the drop reason.
func admit(idx int, f Feature) (model.ScoredPoint, string) {
	if f.Malformed {
		return model.ScoredPoint{}, DropMalformedRaw
	}
	if f.Geometry == nil {
		return model.ScoredPoint{}, DropNoGeometry
	}
	pt, ok := f.Geometry.(*geom.Point)
	if !ok || len(pt.FlatCoords()) < 2 {
		return model.ScoredPoint{}, DropNotPoint
	}

	score, ok := toNumber(f.Properties["score"])
	if !ok {
		return model.ScoredPoint{}, DropBadScore
	}
	if score < model.MinAdmittedScore {
		return model.ScoredPoint{}, DropLowScore
	}

	id := idx + 1
	if raw, present := f.Properties["grid_id"]; present && raw != nil {
		if n, ok := toNumber(raw); ok && n == math.Trunc(n) {
			id = int(n)
		}
	}

	flags := model.POIFlags{
		USAFood:   truthy(f.Properties[model.CategoryUSAFood.Property()]),
		AsianFood: truthy(f.Properties[model.CategoryAsianFood.Property()]),
		MVC:       truthy(f.Properties[model.CategoryMVC.Property()]),
		Park:      truthy(f.Properties[model.CategoryPark.Property()]),
		Museum:    truthy(f.Properties[model.CategoryMuseum.Property()]),
	}

	// GeoJSON and shapefiles both store longitude first.
	pos := geo.Point{Lat: pt.Y(), Lng: pt.X()}
	return model.NewScoredPoint(id, pos, score, flags), ""
}

// toNumber converts a numeric property (number or numeric string) to float64.
// NaN and non-numeric values report false.
func toNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// truthy reports whether a flag property equals the number 1 or the string "1".
func truthy(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == 1
	case float32:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case json.Number:
		return t.String() == "1"
	case string:
		return t == "1"
	default:
		return false
	}
}

// coerce turns a tabular cell into a property value: empty cells are absent,
// numeric cells become float64, everything else stays a string.
func coerce(cell string) any {
	s := strings.TrimSpace(strings.TrimRight(cell, "\x00"))
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
