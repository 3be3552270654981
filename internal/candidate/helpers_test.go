package candidate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pointFeature builds a GeoJSON point feature string.
func pointFeature(t *testing.T, lng, lat float64, props map[string]any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":       "Feature",
		"geometry":   map[string]any{"type": "Point", "coordinates": []float64{lng, lat}},
		"properties": props,
	})
	require.NoError(t, err)
	return string(b)
}

func collection(features ...string) string {
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

func decode(t *testing.T, doc string) []Feature {
	t.Helper()
	features, err := DecodeGeoJSON(strings.NewReader(doc))
	require.NoError(t, err)
	return features
}
