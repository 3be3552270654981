package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gridfinder/internal/candidate"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeOutput encodes v as json or yaml, or calls text for the text format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch strings.ToLower(format) {
	case "", formatText:
		text(w)
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func formatRanking(w io.Writer, res *ranking.Result) {
	n := res.Nearest
	fmt.Fprintf(w, "%s: #%d (score %.2f)\n", n.Label, n.Point.ID, n.Point.Score)
	fmt.Fprintf(w, "  %.2f km / %.2f mi, about %d min drive\n", n.DistanceKM, n.Miles, n.DriveMinutes)
	fmt.Fprintf(w, "  %s\n\n", n.CategorySummary())

	fmt.Fprintf(w, "%d candidates at threshold %.2f from %s\n", res.Candidates, res.Threshold, res.Query)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tSCORE\tKM\tMILES\tMINUTES\tCATEGORIES")
	for _, e := range res.TopN {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\t%.2f\t%d\t%s\n",
			e.Rank, e.Point.ID, e.Point.Score, e.DistanceKM, e.Miles, e.DriveMinutes, e.CategorySummary())
	}
	tw.Flush() //nolint:errcheck
}

func formatPoints(w io.Writer, points []model.ScoredPoint, threshold float64) {
	fmt.Fprintf(w, "%d points at threshold %.2f\n", len(points), threshold)
	if len(points) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAT\tLNG\tSCORE\tPOI\tRADIUS")
	for _, p := range points {
		fmt.Fprintf(tw, "%d\t%.5f\t%.5f\t%.2f\t%d\t%.1f\n",
			p.ID, p.Position.Lat, p.Position.Lng, p.Score, p.POICount, ranking.MarkerRadius(p.Score))
	}
	tw.Flush() //nolint:errcheck
}

func formatStats(w io.Writer, st candidate.Stats) {
	fmt.Fprintf(w, "State:  %s\n", st.State)
	fmt.Fprintf(w, "Points: %d\n", st.Count)
	if st.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Score:  min %.2f  max %.2f  mean %.2f\n", st.MinScore, st.MaxScore, st.MeanScore)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tPOINTS")
	for _, c := range model.Categories {
		fmt.Fprintf(tw, "%s\t%d\n", c.Label(), st.Categories[c])
	}
	tw.Flush() //nolint:errcheck
}

func formatLocation(w io.Writer, query string, r *geocode.Result) {
	name := r.DisplayName
	if name == "" {
		name = query
	}
	fmt.Fprintf(w, "%s\n  %s (via %s)\n", name, r.Position, r.Source)
}
