// Package filter holds the user-driven filter state: the score threshold inputs
// and the POI category selection.
package filter

import "math"

// HighScoreFloor is the threshold enforced by the high-score-only toggle.
const HighScoreFloor = 4.0

// Default slider bounds, matching the map UI.
const (
	DefaultSliderMin = 0.0
	DefaultSliderMax = 5.0
)

// State is the complete filter input for one recomputation. It is a value
// type: copies never share category selection.
type State struct {
	HighScoreOnly bool      `json:"high_score_only" yaml:"high_score_only"`
	MinScore      float64   `json:"min_score" yaml:"min_score"`
	Selection     Selection `json:"selection" yaml:"selection"`
}

// New returns the default state: toggle off, slider at zero, every category checked.
func New() State {
	return State{Selection: AllSelected()}
}

// EffectiveThreshold returns max(toggle floor, slider value). The toggle
// floor is HighScoreFloor when HighScoreOnly is set and 0 otherwise, so the
// slider can raise the floor but never lower it. A NaN slider value counts as 0.
func (s State) EffectiveThreshold() float64 {
	floor := 0.0
	if s.HighScoreOnly {
		floor = HighScoreFloor
	}
	if math.IsNaN(s.MinScore) {
		return floor
	}
	return math.Max(floor, s.MinScore)
}

// Admits reports whether a point with the given score passes the threshold.
func (s State) Admits(score float64) bool {
	return score >= s.EffectiveThreshold()
}

// Bounds is the slider's declared range.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds returns the map UI's slider range.
func DefaultBounds() Bounds {
	return Bounds{Min: DefaultSliderMin, Max: DefaultSliderMax}
}

// Clamp limits v to the bounds. NaN clamps to Min.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}
