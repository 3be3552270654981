// Package geo provides coordinate types, great-circle distance and the New Jersey service area.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the mean Earth radius used by HaversineKM.
const EarthRadiusKM = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether p holds finite, in-range coordinates.
// The distance functions do not call it; outer surfaces validate input with it.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng)
}

// HaversineKM returns the great-circle distance in kilometers between a and b
// on a sphere of radius EarthRadiusKM. NaN inputs yield NaN.
func HaversineKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
