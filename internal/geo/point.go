// Package geo classifies, validates and orders land survey points into
// renderable boundary polygons.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// Coordinate bounds in decimal degrees.
const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// GeoPoint is a WGS84 position in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// NewGeoPoint returns a GeoPoint after checking both coordinates are finite
// and within range.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	if !validLatitude(lat) {
		return GeoPoint{}, eris.Errorf("geo: latitude %v out of range", lat)
	}
	if !validLongitude(lng) {
		return GeoPoint{}, eris.Errorf("geo: longitude %v out of range", lng)
	}
	return GeoPoint{Latitude: lat, Longitude: lng}, nil
}

// Valid reports whether both coordinates are finite and within range.
func (p GeoPoint) Valid() bool {
	return validLatitude(p.Latitude) && validLongitude(p.Longitude)
}

// coord returns the point in go-geom XY order (x = longitude, y = latitude).
func (p GeoPoint) coord() []float64 {
	return []float64{p.Longitude, p.Latitude}
}

func validLatitude(v float64) bool {
	return finite(v) && v >= minLatitude && v <= maxLatitude
}

func validLongitude(v float64) bool {
	return finite(v) && v >= minLongitude && v <= maxLongitude
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
