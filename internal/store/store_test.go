package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// riverPlot is a normalized submission with a square plot listed out of order.
func riverPlot(code string) land.LandSubmission {
	pt := func(lat, lng float64) geo.GeoPoint { return geo.GeoPoint{Latitude: lat, Longitude: lng} }
	return land.LandSubmission{
		FarmerID:      int64Ptr(5),
		LandCode:      code,
		AreaInAcre:    float64Ptr(2.3),
		OwnershipType: "Owned",
		LandName:      "River Plot",
		Image:         "lands/river.jpg",
		SuitabilityDetails: []land.SuitabilityDetail{
			{SuitabilityID: 1, Remarks: "ok"},
			{SuitabilityID: 2, Remarks: ""},
		},
		MeasurementInfo: geo.MeasurementInfo{NMarkDist: float64Ptr(12.5), NeNw: float64Ptr(100), NwSw: float64Ptr(50)},
		CoordinatePoints: []geo.CoordinateRecord{
			{Type: geo.CoordPlot, Point: pt(23.82, 90.42)},
			{Type: geo.CoordPlot, Point: pt(23.81, 90.41)},
			{Type: geo.CoordPlot, Point: pt(23.82, 90.41)},
			{Type: geo.CoordPlot, Point: pt(23.81, 90.42)},
			{Type: geo.CoordInnerArea, Point: pt(23.815, 90.415)},
		},
		ReferencePoints: []geo.ReferencePointRecord{
			{Type: geo.RefSWMark, Point: pt(23.80, 90.40)},
			{Type: geo.RefNMark, Point: pt(23.83, 90.41)},
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetLand", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.CreateLand(ctx, riverPlot("LAND-5-1"))
		require.NoError(t, err)
		assert.Positive(t, id)

		rec, err := s.GetLand(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, id, rec.LandID)
		assert.Equal(t, "River Plot", rec.LandName)
		assert.Equal(t, int64(5), rec.FarmerID)
		assert.InDelta(t, 2.3, rec.AreaInAcre, 1e-9)
		assert.Equal(t, "lands/river.jpg", rec.Image)
		assert.Len(t, rec.CoordinatePoints, 5)
		assert.Len(t, rec.ReferencePoints, 2)
		require.Len(t, rec.MeasurementInfo, 1)
		assert.Nil(t, rec.MeasurementInfo[0].ECornerDist)
		assert.InDelta(t, 12.5, *rec.MeasurementInfo[0].NMarkDist, 1e-9)
		assert.Equal(t, []land.SuitabilityRecord{
			{LandSuitabilityID: 1, Remarks: "ok"},
			{LandSuitabilityID: 2},
		}, rec.SuitabilityDetails)
	})

	t.Run("StoredRecordBuildsView", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.CreateLand(ctx, riverPlot("LAND-5-2"))
		require.NoError(t, err)
		rec, err := s.GetLand(ctx, id)
		require.NoError(t, err)

		v := land.BuildView(*rec)
		assert.Equal(t, []geo.GeoPoint{
			{Latitude: 23.81, Longitude: 90.41},
			{Latitude: 23.81, Longitude: 90.42},
			{Latitude: 23.82, Longitude: 90.42},
			{Latitude: 23.82, Longitude: 90.41},
		}, v.PlotCoordinates)
		assert.Len(t, v.InnerCoordinates, 1)
		require.NotNil(t, v.SWMark)
		require.NotNil(t, v.NMark)
		assert.Equal(t, 100.0, *v.Length)
		assert.Equal(t, 50.0, *v.Width)
		assert.Empty(t, v.Dropped)
	})

	t.Run("GetLandMissing", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.GetLand(context.Background(), 404)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("NoMeasurement", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		sub := riverPlot("LAND-5-3")
		sub.MeasurementInfo = geo.MeasurementInfo{}
		id, err := s.CreateLand(ctx, sub)
		require.NoError(t, err)

		rec, err := s.GetLand(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, rec.MeasurementInfo)
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateLand(ctx, riverPlot("LAND-DUP"))
		require.NoError(t, err)
		_, err = s.CreateLand(ctx, riverPlot("LAND-DUP"))
		require.Error(t, err)

		lands, err := s.ListLands(ctx, LandFilter{})
		require.NoError(t, err)
		assert.Len(t, lands, 1)
	})

	t.Run("ListLands", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, code := range []string{"A", "B", "C"} {
			sub := riverPlot(code)
			sub.FarmerID = int64Ptr(int64(i % 2))
			_, err := s.CreateLand(ctx, sub)
			require.NoError(t, err)
		}

		all, err := s.ListLands(ctx, LandFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "C", all[0].LandCode)
		assert.False(t, all[0].CreatedAt.IsZero())

		byFarmer, err := s.ListLands(ctx, LandFilter{FarmerID: int64Ptr(0)})
		require.NoError(t, err)
		assert.Len(t, byFarmer, 2)

		page, err := s.ListLands(ctx, LandFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "B", page[0].LandCode)
	})

	t.Run("ListLandsByBBox", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateLand(ctx, riverPlot("NEAR"))
		require.NoError(t, err)
		far := riverPlot("FAR")
		for i := range far.CoordinatePoints {
			far.CoordinatePoints[i].Point.Latitude -= 10
		}
		_, err = s.CreateLand(ctx, far)
		require.NoError(t, err)
		none := riverPlot("NONE")
		none.CoordinatePoints = nil
		_, err = s.CreateLand(ctx, none)
		require.NoError(t, err)

		hits, err := s.ListLands(ctx, LandFilter{BBox: &geo.BBox{MinLng: 90.415, MinLat: 23.815, MaxLng: 91, MaxLat: 24}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "NEAR", hits[0].LandCode)

		miss, err := s.ListLands(ctx, LandFilter{BBox: &geo.BBox{MinLng: 0, MinLat: 0, MaxLng: 1, MaxLat: 1}})
		require.NoError(t, err)
		assert.Empty(t, miss)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestBoundaryEWKB(t *testing.T) {
	sub := riverPlot("X")
	data, err := boundaryEWKB(sub)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, geo.SRID, poly.SRID())
	// Four ordered vertices plus the closing one, lng first.
	assert.Equal(t, []float64{
		90.41, 23.81,
		90.42, 23.81,
		90.42, 23.82,
		90.41, 23.82,
		90.41, 23.81,
	}, poly.FlatCoords())
}

func TestBoundaryEWKB_PrefersLandArea(t *testing.T) {
	sub := riverPlot("X")
	for _, p := range []geo.GeoPoint{{Latitude: 1, Longitude: 1}, {Latitude: 1, Longitude: 2}, {Latitude: 2, Longitude: 2}} {
		sub.CoordinatePoints = append(sub.CoordinatePoints, geo.CoordinateRecord{Type: geo.CoordLandArea, Point: p})
	}

	data, err := boundaryEWKB(sub)
	require.NoError(t, err)
	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 4, g.(*geom.Polygon).NumCoords())
}

func TestBoundaryEWKB_TooFewPoints(t *testing.T) {
	sub := riverPlot("X")
	sub.CoordinatePoints = sub.CoordinatePoints[:2]

	data, err := boundaryEWKB(sub)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestEnvelopeArgs(t *testing.T) {
	assert.Equal(t, []any{nil, nil, nil, nil}, envelopeArgs(nil))
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, envelopeArgs(&geo.BBox{MinLng: 1, MinLat: 2, MaxLng: 3, MaxLat: 4}))
}

func TestLandFilterLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, LandFilter{}.limit())
	assert.Equal(t, defaultListLimit, LandFilter{Limit: -1}.limit())
	assert.Equal(t, 7, LandFilter{Limit: 7}.limit())
}

func TestRowBuilders(t *testing.T) {
	sub := riverPlot("X")

	rows := coordinateRows(9, sub.CoordinatePoints)
	require.Len(t, rows, 5)
	assert.Equal(t, []any{int64(9), 4, "inner_area", 23.815, 90.415}, rows[4])

	refs := referenceRows(9, sub.ReferencePoints)
	assert.Equal(t, []any{int64(9), 1, "n_mark", 23.83, 90.41}, refs[1])

	suit := suitabilityRows(9, sub.SuitabilityDetails)
	assert.Equal(t, []any{int64(9), 0, int64(1), "ok"}, suit[0])

	assert.Len(t, measurementArgs(9, sub.MeasurementInfo), 9)
	assert.Equal(t, int64(0), farmerIDOf(land.LandSubmission{}))
	assert.Equal(t, 0.0, areaOf(land.LandSubmission{}))
}
