// Package export writes land view boundaries out as GIS files.
package export

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
)

// DBF field layout of exported shapefiles.
const (
	fieldGroup  = "GROUP"
	fieldLandID = "LAND_ID"
)

const minRing = 3

// polygons returns the boundaries of v that can form a polygon.
func polygons(v land.View) []land.Boundary {
	var out []land.Boundary
	for _, b := range v.Boundaries() {
		if len(b.Points) < minRing {
			zap.L().Debug("export: skipping short boundary",
				zap.Int64("land_id", v.LandID),
				zap.String("group", string(b.Group)),
				zap.Int("points", len(b.Points)),
			)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Shapefile writes one POLYGON record per boundary group of v to path (plus
// the .shx and .dbf siblings). Returns the number of records written.
func Shapefile(path string, v land.View) (int, error) {
	bs := polygons(v)
	if len(bs) == 0 {
		return 0, eris.Errorf("export: land %d has no boundary with %d or more points", v.LandID, minRing)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "export: create directory")
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	werr := writeRecords(w, v.LandID, bs)
	w.Close()
	if werr != nil {
		return 0, werr
	}

	// go-shp v0.1.1 names the attribute table "<base>dbf" without the dot.
	base := shapefileBase(path)
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return 0, eris.Wrapf(err, "export: rename attribute table for %s", path)
	}

	zap.L().Info("export: wrote shapefile",
		zap.String("path", path),
		zap.Int64("land_id", v.LandID),
		zap.Int("records", len(bs)),
	)
	return len(bs), nil
}

func writeRecords(w *shp.Writer, landID int64, bs []land.Boundary) error {
	if err := w.SetFields([]shp.Field{
		shp.StringField(fieldGroup, 32),
		shp.NumberField(fieldLandID, 18),
	}); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, b := range bs {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring(b.Points)}))
		n := int(w.Write(&poly))
		if err := w.WriteAttribute(n, 0, string(b.Group)); err != nil {
			return eris.Wrapf(err, "export: write %s attribute", fieldGroup)
		}
		if err := w.WriteAttribute(n, 1, int(landID)); err != nil {
			return eris.Wrapf(err, "export: write %s attribute", fieldLandID)
		}
	}
	return nil
}

// shapefileBase strips a .shp extension the way shp.Create does.
func shapefileBase(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-len(".shp")]
	}
	return path
}

// ring converts ordered points to a closed shapefile ring. Shapefile outer
// rings run clockwise, so the counter-clockwise input is reversed.
func ring(points []geo.GeoPoint) []shp.Point {
	out := make([]shp.Point, 0, len(points)+1)
	for _, p := range slices.Backward(points) {
		out = append(out, shp.Point{X: p.Longitude, Y: p.Latitude})
	}
	return append(out, out[0])
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"`
	Features []feature `json:"features"`
}

// GeoJSON renders v as a FeatureCollection: one Polygon feature per boundary
// group with a "group" property, then one Point feature per resolved mark
// with a "role" property.
func GeoJSON(v land.View) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}

	for _, b := range polygons(v) {
		g, err := geo.EncodeGeoJSON(b.Points)
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s polygon", b.Group)
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: g,
			Properties: map[string]any{
				"land_id": v.LandID,
				"group":   string(b.Group),
			},
		})
	}

	for _, m := range v.Marks() {
		g, err := geojson.Encode(m.Point.Geom())
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s point", m.Role)
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: g,
			Properties: map[string]any{
				"land_id": v.LandID,
				"role":    string(m.Role),
			},
		})
	}

	if b := v.Bounds; b != nil {
		fc.BBox = []float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal GeoJSON")
	}
	return data, nil
}

// EWKBHex maps each boundary group of v to its polygon as hex-encoded EWKB,
// the text form PostGIS accepts for geometry input.
func EWKBHex(v land.View) (map[string]string, error) {
	out := make(map[string]string)
	for _, b := range polygons(v) {
		data, err := geo.EncodeEWKB(b.Points)
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s EWKB", b.Group)
		}
		out[string(b.Group)] = hex.EncodeToString(data)
	}
	return out, nil
}
