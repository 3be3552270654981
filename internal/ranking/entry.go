package ranking

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/model"
)

// Display constants. Drive time is a straight-line approximation at a fixed
// average speed, not a routed estimate.
const (
	MilesPerKM      = 0.621371
	AssumedSpeedMPH = 50.0
	NearestLabel    = "Your nearest grid center"
)

// Metrics are the human-facing forms of a distance.
type Metrics struct {
	Miles        float64 `json:"miles" yaml:"miles"`
	DriveMinutes int     `json:"drive_minutes" yaml:"drive_minutes"`
}

// DisplayMetrics converts a distance in km to miles and approximate drive minutes.
func DisplayMetrics(km float64) Metrics {
	miles := km * MilesPerKM
	return Metrics{
		Miles:        miles,
		DriveMinutes: int(math.Round(miles / AssumedSpeedMPH * 60)),
	}
}

// Entry is one row of a ranked result.
type Entry struct {
	// Rank is 1-based within TopN; 0 marks the standalone nearest entry.
	Rank       int               `json:"rank" yaml:"rank"`
	Label      string            `json:"label" yaml:"label"`
	Point      model.ScoredPoint `json:"point" yaml:"point"`
	DistanceKM float64           `json:"distance_km" yaml:"distance_km"`
	Metrics    `yaml:",inline"`
	// Categories holds "<category>: Y|N" for the selected categories.
	Categories []string `json:"categories" yaml:"categories"`
}

func newEntry(p model.ScoredPoint, km float64, rank int, sel filter.Selection) Entry {
	return Entry{
		Rank:       rank,
		Label:      RankLabel(rank),
		Point:      p,
		DistanceKM: km,
		Metrics:    DisplayMetrics(km),
		Categories: filter.Labels(p, sel),
	}
}

// CategorySummary joins the entry's category labels, or reports that none
// are selected.
func (e Entry) CategorySummary() string {
	if len(e.Categories) == 0 {
		return filter.NoCategoriesLabel
	}
	return strings.Join(e.Categories, " | ")
}

// RankLabel names a ranked position. Rank 0 is the nearest-center card.
func RankLabel(rank int) string {
	if rank <= 0 {
		return NearestLabel
	}
	return fmt.Sprintf("High-score center #%d", rank)
}

// MarkerRadius is the map marker size for a candidate of the given score.
func MarkerRadius(score float64) float64 {
	return 4 + (score-3)*3
}

// HighlightRadius is the marker size for a ranked entry: the primary result
// is drawn larger than the rest.
func HighlightRadius(rank int) float64 {
	if rank <= 1 {
		return 12
	}
	return 9
}
