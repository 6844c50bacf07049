package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRID is the spatial reference of every geometry built here (WGS84).
const SRID = 4326

// BBox is a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng" yaml:"min_lng"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLng float64 `json:"max_lng" yaml:"max_lng"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Polygon builds a closed single-ring polygon from points taken in the given
// order. Callers normally pass the output of OrderPolygon.
func Polygon(points []GeoPoint) (*geom.Polygon, error) {
	if len(points) < minPolygonVertices {
		return nil, eris.Errorf("geo: polygon needs at least %d points, got %d", minPolygonVertices, len(points))
	}
	for i, p := range points {
		if !p.Valid() {
			return nil, eris.Errorf("geo: polygon vertex %d out of range", i)
		}
	}

	flat := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		flat = append(flat, p.coord()...)
	}
	flat = append(flat, points[0].coord()...) // close the ring

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(SRID), nil
}

// EncodeEWKB encodes the polygon formed by points as little-endian EWKB with
// SRID 4326.
func EncodeEWKB(points []GeoPoint) ([]byte, error) {
	poly, err := Polygon(points)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(poly, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// EncodeGeoJSON encodes the polygon formed by points as a GeoJSON Polygon
// geometry in lng/lat order.
func EncodeGeoJSON(points []GeoPoint) (*geojson.Geometry, error) {
	poly, err := Polygon(points)
	if err != nil {
		return nil, err
	}
	g, err := geojson.Encode(poly)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode GeoJSON")
	}
	return g, nil
}

// Geom returns p as a go-geom point with SRID 4326.
func (p GeoPoint) Geom() *geom.Point {
	return geom.NewPointFlat(geom.XY, p.coord()).SetSRID(SRID)
}

// BoundsOf returns the envelope of points, or nil when there are none.
func BoundsOf(points ...[]GeoPoint) *BBox {
	var flat []float64
	for _, pts := range points {
		for _, p := range pts {
			flat = append(flat, p.coord()...)
		}
	}
	if len(flat) == 0 {
		return nil
	}
	b := geom.NewMultiPointFlat(geom.XY, flat).Bounds()
	return &BBox{
		MinLng: b.Min(0),
		MinLat: b.Min(1),
		MaxLng: b.Max(0),
		MaxLat: b.Max(1),
	}
}
