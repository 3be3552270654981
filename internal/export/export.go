// Package export writes filtered or ranked grid points to CSV and XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
)

// Header is the column order of every export.
var Header = []string{
	"id", "lat", "lng", "score", "poi_count", "flags",
	"distance_km", "miles", "drive_minutes",
}

// Row is one exported point. Distance columns are blank when Ranked is false.
type Row struct {
	Point        model.ScoredPoint
	Ranked       bool
	DistanceKM   float64
	Miles        float64
	DriveMinutes int
}

// PointRows converts a filtered point list.
func PointRows(points []model.ScoredPoint) []Row {
	rows := make([]Row, len(points))
	for i, p := range points {
		rows[i] = Row{Point: p}
	}
	return rows
}

// EntryRows converts ranked entries.
func EntryRows(entries []ranking.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Point:        e.Point,
			Ranked:       true,
			DistanceKM:   e.DistanceKM,
			Miles:        e.Miles,
			DriveMinutes: e.DriveMinutes,
		}
	}
	return rows
}

// Flags lists the POI categories present at p, separated by ";".
func Flags(p model.ScoredPoint) string {
	var present []string
	for _, c := range model.Categories {
		if p.POI.Has(c) {
			present = append(present, string(c))
		}
	}
	return strings.Join(present, ";")
}

// Record renders r as strings in Header order.
func (r Row) Record() []string {
	rec := []string{
		strconv.Itoa(r.Point.ID),
		formatFloat(r.Point.Position.Lat, 6),
		formatFloat(r.Point.Position.Lng, 6),
		formatFloat(r.Point.Score, 2),
		strconv.Itoa(r.Point.POICount),
		Flags(r.Point),
		"", "", "",
	}
	if r.Ranked {
		rec[6] = formatFloat(r.DistanceKM, 3)
		rec[7] = formatFloat(r.Miles, 2)
		rec[8] = strconv.Itoa(r.DriveMinutes)
	}
	return rec
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteCSV writes a header row followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", r.Point.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes rows to a single-sheet workbook at path. Numeric columns
// are stored as numbers.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("grid_centers")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Point.ID)
		row.AddCell().SetFloat(r.Point.Position.Lat)
		row.AddCell().SetFloat(r.Point.Position.Lng)
		row.AddCell().SetFloat(r.Point.Score)
		row.AddCell().SetInt(r.Point.POICount)
		row.AddCell().SetString(Flags(r.Point))
		if r.Ranked {
			row.AddCell().SetFloat(r.DistanceKM)
			row.AddCell().SetFloat(r.Miles)
			row.AddCell().SetInt(r.DriveMinutes)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
