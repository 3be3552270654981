package candidate

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func createTestShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.NumberField("GRID_ID", 8),
		shp.FloatField("SCORE", 8, 2),
		shp.NumberField("HAS_MVC", 1),
	}))

	rows := []struct {
		x, y  float64
		id    int
		score float64
		mvc   int
	}{
		{-74.50, 40.10, 501, 4.25, 1},
		{-74.60, 40.20, 502, 2.50, 0},
	}
	for i, r := range rows {
		w.Write(&shp.Point{X: r.x, Y: r.y})
		require.NoError(t, w.WriteAttribute(i, 0, r.id))
		require.NoError(t, w.WriteAttribute(i, 1, r.score))
		require.NoError(t, w.WriteAttribute(i, 2, r.mvc))
	}
	w.Close()
	return path
}

func TestReadShapefile(t *testing.T) {
	features, err := ReadShapefile(createTestShapefile(t))
	require.NoError(t, err)
	require.Len(t, features, 2)

	pt, ok := features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -74.50, pt.X(), 1e-9)
	assert.InDelta(t, 40.10, pt.Y(), 1e-9)
	assert.Equal(t, 501.0, features[0].Properties["grid_id"])
	assert.Equal(t, 4.25, features[0].Properties["score"])

	s := NewStore()
	res := s.Load(features)
	assert.Equal(t, 1, res.Loaded)
	assert.Equal(t, 1, res.Dropped[DropLowScore])
	require.Len(t, s.All(), 1)
	assert.Equal(t, 501, s.All()[0].ID)
	assert.True(t, s.All()[0].POI.MVC)
}

func TestReadShapefile_Missing(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}
