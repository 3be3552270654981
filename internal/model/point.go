// Package model holds the scored grid-cell types shared by the loader, filters and ranking.
package model

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/geo"
)

// MinAdmittedScore is the data-quality gate applied at load time. Points
// scoring below it never enter the store.
const MinAdmittedScore = 3.0

// Category identifies one POI category.
type Category string

// POI categories. Values match the checkbox values of the map UI.
const (
	CategoryUSAFood   Category = "supermarket_usa"
	CategoryAsianFood Category = "supermarket_asian"
	CategoryMVC       Category = "mvc"
	CategoryPark      Category = "park"
	CategoryMuseum    Category = "museum"
)

// CategoryAll is the sentinel for the "all categories" control.
const CategoryAll Category = "all"

// Categories lists every individual category in display order.
var Categories = []Category{
	CategoryUSAFood,
	CategoryAsianFood,
	CategoryPark,
	CategoryMuseum,
	CategoryMVC,
}

// Property returns the dataset property name carrying the category flag.
func (c Category) Property() string {
	switch c {
	case CategoryUSAFood:
		return "has_usa"
	case CategoryAsianFood:
		return "has_asian"
	case CategoryMVC:
		return "has_mvc"
	case CategoryPark:
		return "has_park"
	case CategoryMuseum:
		return "has_museum"
	default:
		return ""
	}
}

// Label returns the human label used in result lists.
func (c Category) Label() string {
	switch c {
	case CategoryUSAFood:
		return "USA food"
	case CategoryAsianFood:
		return "Asian food"
	case CategoryMVC:
		return "MVC"
	case CategoryPark:
		return "Park"
	case CategoryMuseum:
		return "Museum"
	default:
		return string(c)
	}
}

// ParseCategory maps a checkbox value or short alias to a Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "supermarket_usa", "usa", "usa_food":
		return CategoryUSAFood, nil
	case "supermarket_asian", "asian", "asian_food":
		return CategoryAsianFood, nil
	case "mvc", "mvc_office":
		return CategoryMVC, nil
	case "park":
		return CategoryPark, nil
	case "museum":
		return CategoryMuseum, nil
	case "all":
		return CategoryAll, nil
	default:
		return "", eris.Errorf("model: unknown POI category %q", s)
	}
}

// POIFlags records which POI categories are present near a grid cell.
type POIFlags struct {
	USAFood   bool `json:"usa_food" yaml:"usa_food"`
	AsianFood bool `json:"asian_food" yaml:"asian_food"`
	MVC       bool `json:"mvc" yaml:"mvc"`
	Park      bool `json:"park" yaml:"park"`
	Museum    bool `json:"museum" yaml:"museum"`
}

// Has reports the flag for c. CategoryAll and unknown categories report false.
func (f POIFlags) Has(c Category) bool {
	switch c {
	case CategoryUSAFood:
		return f.USAFood
	case CategoryAsianFood:
		return f.AsianFood
	case CategoryMVC:
		return f.MVC
	case CategoryPark:
		return f.Park
	case CategoryMuseum:
		return f.Museum
	default:
		return false
	}
}

// Count returns the number of true flags.
func (f POIFlags) Count() int {
	n := 0
	for _, c := range Categories {
		if f.Has(c) {
			n++
		}
	}
	return n
}

// ScoredPoint is one admitted grid cell. Values are never mutated after load.
type ScoredPoint struct {
	ID       int       `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Position geo.Point `json:"position" yaml:"position"`
	Score    float64   `json:"score" yaml:"score"`
	POI      POIFlags  `json:"poi" yaml:"poi"`
	POICount int       `json:"poi_count" yaml:"poi_count"`
}

// NewScoredPoint builds a point and derives its name and POI count.
func NewScoredPoint(id int, pos geo.Point, score float64, flags POIFlags) ScoredPoint {
	return ScoredPoint{
		ID:       id,
		Name:     fmt.Sprintf("Grid cell %d", id),
		Position: pos,
		Score:    score,
		POI:      flags,
		POICount: flags.Count(),
	}
}
