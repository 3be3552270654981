package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gridfinder/internal/fetcher"
	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
)

type points []model.ScoredPoint

func (p points) Points() ([]model.ScoredPoint, error) { return p, nil }

func fixture() points {
	return points{
		model.NewScoredPoint(7, geo.Point{Lat: 40.2206, Lng: -74.7699}, 4.5,
			model.POIFlags{USAFood: true, Park: true}),
		model.NewScoredPoint(9, geo.Point{Lat: 40.7357, Lng: -74.1724}, 3.25, model.POIFlags{}),
	}
}

func TestFlags(t *testing.T) {
	assert.Equal(t, "supermarket_usa;park", Flags(fixture()[0]))
	assert.Empty(t, Flags(fixture()[1]))
}

func TestWriteCSV_Points(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, PointRows(fixture())))

	want := "id,lat,lng,score,poi_count,flags,distance_km,miles,drive_minutes\n" +
		"7,40.220600,-74.769900,4.50,2,supermarket_usa;park,,,\n" +
		"9,40.735700,-74.172400,3.25,0,,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Ranked(t *testing.T) {
	res, err := ranking.New().Rank(fixture(), filter.New(), geo.Point{Lat: 40.2206, Lng: -74.7699})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, EntryRows(res.TopN)))

	rows, err := fetcher.ReadCSV(t.Context(), &buf, fetcher.CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"7", "40.220600", "-74.769900", "4.50", "2", "supermarket_usa;park", "0.000", "0.00", "0"}, rows[1])
	assert.Equal(t, "9", rows[2][0])
	assert.NotEmpty(t, rows[2][6])
	assert.NotEqual(t, "0", rows[2][8])
}

func TestWriteXLSX(t *testing.T) {
	res, err := ranking.New().Rank(fixture(), filter.New(), geo.Point{Lat: 40.7357, Lng: -74.1724})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ranked.xlsx")
	require.NoError(t, WriteXLSX(path, EntryRows(res.TopN)))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "grid_centers", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "9", sheet.Rows[1].Cells[0].String())

	id, err := sheet.Rows[2].Cells[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Len(t, sheet.Rows[2].Cells, len(Header))
}

func TestWriteXLSX_Points(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.xlsx")
	require.NoError(t, WriteXLSX(path, PointRows(fixture())))

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "supermarket_usa;park", rows[0][5])
	assert.Equal(t, "9", rows[1][0])
}

func TestWriteXLSX_BadPath(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "missing", "out.xlsx"), PointRows(fixture()))
	assert.Error(t, err)
}
