package candidate

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// featureCollection decodes the envelope only; each feature is decoded on its
// own so a single malformed feature cannot fail the whole collection.
type featureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// DecodeGeoJSON reads a GeoJSON FeatureCollection. Features that cannot be
// decoded keep their position in the result and are flagged Malformed.
func DecodeGeoJSON(r io.Reader) ([]Feature, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "candidate: decode feature collection")
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("candidate: expected FeatureCollection, got %q", fc.Type)
	}

	features := make([]Feature, 0, len(fc.Features))
	for i, raw := range fc.Features {
		var gf geojson.Feature
		if err := json.Unmarshal(raw, &gf); err != nil {
			zap.L().Debug("candidate: malformed feature",
				zap.Int("index", i),
				zap.Error(err),
			)
			features = append(features, Feature{Malformed: true})
			continue
		}
		features = append(features, Feature{
			Geometry:   gf.Geometry,
			Properties: gf.Properties,
		})
	}

	return features, nil
}
