package candidate

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/gridfinder/internal/fetcher"
)

var (
	latColumns = []string{"lat", "latitude", "y"}
	lngColumns = []string{"lng", "lon", "long", "longitude", "x"}
)

// FeaturesFromRows converts a header row plus data rows into features. The
// header must name a latitude and a longitude column; other columns become
// properties. Rows with unparsable coordinates get a nil geometry.
func FeaturesFromRows(rows [][]string) ([]Feature, error) {
	if len(rows) == 0 {
		return nil, eris.New("candidate: table has no header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	latIdx := columnIndex(header, latColumns)
	lngIdx := columnIndex(header, lngColumns)
	if latIdx < 0 || lngIdx < 0 {
		return nil, eris.Errorf("candidate: table header %v lacks latitude/longitude columns", header)
	}

	features := make([]Feature, 0, len(rows)-1)
	for _, row := range rows[1:] {
		props := make(map[string]any, len(header))
		for i, name := range header {
			if i == latIdx || i == lngIdx || i >= len(row) {
				continue
			}
			if v := coerce(row[i]); v != nil {
				props[name] = v
			}
		}

		var g geom.T
		lat, latErr := cell(row, latIdx)
		lng, lngErr := cell(row, lngIdx)
		if latErr == nil && lngErr == nil {
			g = geom.NewPointFlat(geom.XY, []float64{lng, lat})
		}

		features = append(features, Feature{Geometry: g, Properties: props})
	}
	return features, nil
}

// ReadXLSX reads the first sheet of an XLSX workbook into features.
func ReadXLSX(path string) ([]Feature, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, err
	}
	return FeaturesFromRows(rows)
}

// ReadCSV reads a comma separated file into features.
func ReadCSV(ctx context.Context, path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "candidate: open csv")
	}
	defer f.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, err
	}
	return FeaturesFromRows(rows)
}

func columnIndex(header []string, names []string) int {
	for _, n := range names {
		for i, h := range header {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, eris.New("candidate: missing cell")
	}
	return strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
}
