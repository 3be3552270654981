package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
)

// addFilterFlags registers the score and category filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("high-score-only", false, "only consider centers scoring at least 4")
	cmd.Flags().Float64("min-score", 0, "minimum score (clamped to the slider range)")
	cmd.Flags().String("categories", "all", "comma separated POI categories to label (all, none, usa, asian, park, museum, mvc)")
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", formatText, "output format: text, json or yaml")
}

func addPointFlags(cmd *cobra.Command, required bool) {
	cmd.Flags().Float64("lat", 0, "query latitude")
	cmd.Flags().Float64("lng", 0, "query longitude")
	if required {
		_ = cmd.MarkFlagRequired("lat")
		_ = cmd.MarkFlagRequired("lng")
	}
}

// filterStateFromFlags builds the filter state from addFilterFlags flags.
func filterStateFromFlags(cmd *cobra.Command, bounds filter.Bounds) (filter.State, error) {
	highOnly, _ := cmd.Flags().GetBool("high-score-only")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	cats, _ := cmd.Flags().GetString("categories")

	sel, err := filter.ParseSelection(cats)
	if err != nil {
		return filter.State{}, err
	}
	return filter.State{
		HighScoreOnly: highOnly,
		MinScore:      bounds.Clamp(minScore),
		Selection:     sel,
	}, nil
}

// pointFromFlags returns the --lat/--lng point and whether both were set.
func pointFromFlags(cmd *cobra.Command) (geo.Point, bool, error) {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lng") {
		return geo.Point{}, false, nil
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	p := geo.Point{Lat: lat, Lng: lng}
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") || !p.Valid() {
		return p, true, errInvalidPoint(p)
	}
	return p, true, nil
}
