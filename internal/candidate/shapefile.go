package candidate

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ReadShapefile reads a point shapefile (with its .dbf) into features.
// Attribute names are lower-cased; numeric attribute text becomes float64.
func ReadShapefile(path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "candidate: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	for reader.Next() {
		_, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for i, name := range names {
			if v := coerce(reader.Attribute(i)); v != nil {
				props[name] = v
			}
		}

		var g geom.T
		switch s := shape.(type) {
		case *shp.Point:
			g = geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
		case nil, *shp.Null:
		default:
			// Non-point shapes are kept so admission can count them.
			g = geom.NewMultiPoint(geom.XY)
		}

		features = append(features, Feature{Geometry: g, Properties: props})
	}
	return features, nil
}
