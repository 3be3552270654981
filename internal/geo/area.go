package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Service area classification constants.
const (
	AreaInside  = "inside"
	AreaFringe  = "fringe"
	AreaOutside = "outside"
)

// fringeKM is how far outside the service rectangle a point may fall and
// still be treated as a plausible query (border towns, river crossings).
const fringeKM = 25.0

// NewJersey is the bounding rectangle of the state, padded slightly at the shore.
var NewJersey = s2.RectFromLatLng(s2.LatLngFromDegrees(38.85, -75.60)).
	AddPoint(s2.LatLngFromDegrees(41.40, -73.85))

// InServiceArea reports whether p lies inside the New Jersey rectangle.
func InServiceArea(p Point) bool {
	return NewJersey.ContainsLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
}

// ClassifyArea returns where p falls relative to the service area:
//   - inside: within the rectangle
//   - fringe: outside but within fringeKM of its edge
//   - outside: anything further away, or an invalid point
func ClassifyArea(p Point) string {
	if !p.Valid() {
		return AreaOutside
	}
	ll := s2.LatLngFromDegrees(p.Lat, p.Lng)
	if NewJersey.ContainsLatLng(ll) {
		return AreaInside
	}
	if distanceToRectKM(ll) <= fringeKM {
		return AreaFringe
	}
	return AreaOutside
}

func distanceToRectKM(ll s2.LatLng) float64 {
	var d s1.Angle = NewJersey.DistanceToLatLng(ll)
	return d.Radians() * EarthRadiusKM
}
