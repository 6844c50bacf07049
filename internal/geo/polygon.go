package geo

import (
	"math"
	"slices"
)

// minPolygonVertices is the smallest vertex count that forms a polygon.
const minPolygonVertices = 3

// Centroid returns the arithmetic mean of the points' latitudes and
// longitudes. This is a planar approximation, adequate at parcel scale.
// The zero GeoPoint is returned for an empty slice.
//
// Sums run over sorted values so any permutation of the same points yields a
// bit-identical centroid.
func Centroid(points []GeoPoint) GeoPoint {
	if len(points) == 0 {
		return GeoPoint{}
	}
	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Latitude
		lngs[i] = p.Longitude
	}
	n := float64(len(points))
	return GeoPoint{Latitude: sortedSum(lats) / n, Longitude: sortedSum(lngs) / n}
}

func sortedSum(vs []float64) float64 {
	slices.Sort(vs)
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum
}

// OrderPolygon sorts boundary points by their angle around the centroid so
// that consecutive points trace the boundary, with the last point implicitly
// joined to the first. Points with equal angles keep their input order.
//
// Fewer than three points are returned unchanged. Otherwise a new slice is
// returned and the input is not modified. Each boundary group must be ordered
// on its own; concave boundaries may still yield a self-intersecting path.
func OrderPolygon(points []GeoPoint) []GeoPoint {
	if len(points) < minPolygonVertices {
		return points
	}

	c := Centroid(points)
	type vertex struct {
		p     GeoPoint
		angle float64
	}
	vs := make([]vertex, len(points))
	for i, p := range points {
		vs[i] = vertex{p: p, angle: math.Atan2(p.Latitude-c.Latitude, p.Longitude-c.Longitude)}
	}

	slices.SortStableFunc(vs, func(a, b vertex) int {
		switch {
		case a.angle < b.angle:
			return -1
		case a.angle > b.angle:
			return 1
		default:
			return 0
		}
	})

	out := make([]GeoPoint, len(vs))
	for i, v := range vs {
		out[i] = v.p
	}
	return out
}
