package export

import (
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
)

func sampleView() land.View {
	return land.BuildView(land.LandRecord{
		LandID: 77,
		CoordinatePoints: []geo.RawPoint{
			{"latitude": 23.82, "longitude": 90.42, "coordinate_type": "plot"},
			{"latitude": 23.81, "longitude": 90.41, "coordinate_type": "plot"},
			{"latitude": 23.82, "longitude": 90.41, "coordinate_type": "plot"},
			{"latitude": 23.81, "longitude": 90.42, "coordinate_type": "plot"},
			{"latitude": 23.80, "longitude": 90.40, "coordinate_type": "land_area"},
			{"latitude": 23.80, "longitude": 90.43, "coordinate_type": "land_area"},
			{"latitude": 23.83, "longitude": 90.43, "coordinate_type": "land_area"},
			{"latitude": 23.815, "longitude": 90.415, "coordinate_type": "inner_area"},
		},
		ReferencePoints: []geo.RawPoint{
			{"latitude": 23.79, "longitude": 90.39, "point_type": "sw_mark"},
		},
	})
}

func TestShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "land_77.shp")

	n, err := Shapefile(path, sampleView())
	require.NoError(t, err)
	assert.Equal(t, 2, n) // inner_area has a single point

	dir := filepath.Dir(path)
	for _, name := range []string{"land_77.shp", "land_77.shx", "land_77.dbf"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "land_77dbf"))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close() //nolint:errcheck

	fields := r.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, fieldGroup, strings.TrimRight(fields[0].String(), "\x00"))
	assert.Equal(t, fieldLandID, strings.TrimRight(fields[1].String(), "\x00"))

	var groups []string
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		assert.Equal(t, int32(1), poly.NumParts)
		// Closed ring.
		assert.Equal(t, poly.Points[0], poly.Points[len(poly.Points)-1])

		groups = append(groups, strings.TrimSpace(strings.TrimRight(r.Attribute(0), "\x00")))
		assert.Equal(t, "77", strings.TrimSpace(strings.TrimRight(r.Attribute(1), "\x00")))
	}
	assert.Equal(t, []string{"plot", "land_area"}, groups)
}

func TestShapefile_UppercaseExtension(t *testing.T) {
	dir := t.TempDir()

	_, err := Shapefile(filepath.Join(dir, "LAND.SHP"), sampleView())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "LAND.dbf"))
}

func TestShapefileBase(t *testing.T) {
	assert.Equal(t, "out/land_1", shapefileBase("out/land_1.shp"))
	assert.Equal(t, "out/land_1", shapefileBase("out/land_1.SHP"))
	assert.Equal(t, "out/land_1", shapefileBase("out/land_1"))
}

func TestShapefile_NoBoundary(t *testing.T) {
	_, err := Shapefile(filepath.Join(t.TempDir(), "x.shp"), land.View{LandID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "land 3 has no boundary")
}

func TestRing_ClockwiseAndClosed(t *testing.T) {
	pts := []geo.GeoPoint{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
	}
	assert.Equal(t, []shp.Point{
		{X: 1, Y: 1},
		{X: 1, Y: 0},
		{X: 0, Y: 0},
		{X: 1, Y: 1},
	}, ring(pts))
}

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON(sampleView())
	require.NoError(t, err)

	var fc struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, []float64{90.39, 23.79, 90.43, 23.83}, fc.BBox)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "plot", fc.Features[0].Properties["group"])
	assert.Equal(t, 77.0, fc.Features[0].Properties["land_id"])
	assert.Equal(t, "land_area", fc.Features[1].Properties["group"])
	assert.Equal(t, "Point", fc.Features[2].Geometry.Type)
	assert.Equal(t, "sw_mark", fc.Features[2].Properties["role"])
	assert.JSONEq(t, `[90.39, 23.79]`, string(fc.Features[2].Geometry.Coordinates))
}

func TestGeoJSON_PolygonMatchesEncoder(t *testing.T) {
	v := sampleView()
	data, err := GeoJSON(v)
	require.NoError(t, err)

	var fc struct {
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	want, err := geo.EncodeGeoJSON(v.Boundaries()[0].Points)
	require.NoError(t, err)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(fc.Features[0].Geometry))
}

func TestGeoJSON_Empty(t *testing.T) {
	data, err := GeoJSON(land.View{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestEWKBHex(t *testing.T) {
	out, err := EWKBHex(sampleView())
	require.NoError(t, err)
	require.Len(t, out, 2)

	raw, err := hex.DecodeString(out["land_area"])
	require.NoError(t, err)
	g, err := ewkb.Unmarshal(raw)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 4, poly.NumCoords())
	assert.Equal(t, geo.SRID, poly.SRID())

	_, ok = out["inner_area"]
	assert.False(t, ok)
}
