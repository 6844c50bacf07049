// Package store persists land submissions and serves them back in the
// land-information service record shape.
package store

import (
	"context"
	"time"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/land"
)

// LandFilter specifies criteria for listing lands. BBox keeps lands whose
// stored boundary envelope overlaps the box.
type LandFilter struct {
	FarmerID *int64    `json:"farmer_id,omitempty"`
	BBox     *geo.BBox `json:"bbox,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// LandSummary is one row of a land listing.
type LandSummary struct {
	LandID        int64     `json:"land_id"`
	LandCode      string    `json:"land_code"`
	LandName      string    `json:"land_name"`
	FarmerID      int64     `json:"farmer_id"`
	AreaInAcre    float64   `json:"area_in_acre"`
	OwnershipType string    `json:"ownership_type"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store defines the persistence interface for land parcels.
type Store interface {
	// CreateLand persists a normalized, validated submission and returns the new land ID.
	CreateLand(ctx context.Context, s land.LandSubmission) (int64, error)
	// GetLand returns the stored record, or nil when no land has that ID.
	GetLand(ctx context.Context, landID int64) (*land.LandRecord, error)
	ListLands(ctx context.Context, filter LandFilter) ([]LandSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func (f LandFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// boundaryPoints returns the parcel outline stored alongside the land row:
// the ordered land_area polygon when it has enough vertices, else the plot
// polygon. Returns nil when neither group forms a polygon.
func boundaryPoints(s land.LandSubmission) []geo.GeoPoint {
	groups := geo.GroupByCoordinateType(s.CoordinatePoints)
	for _, t := range []geo.CoordinateType{geo.CoordLandArea, geo.CoordPlot} {
		if pts := geo.OrderPolygon(groups.Get(t)); len(pts) >= 3 {
			return pts
		}
	}
	return nil
}

func boundaryEWKB(s land.LandSubmission) ([]byte, error) {
	pts := boundaryPoints(s)
	if pts == nil {
		return nil, nil
	}
	return geo.EncodeEWKB(pts)
}

// envelopeArgs returns min_lng, min_lat, max_lng, max_lat, or four NULLs.
func envelopeArgs(b *geo.BBox) []any {
	if b == nil {
		return []any{nil, nil, nil, nil}
	}
	return []any{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
}

func farmerIDOf(s land.LandSubmission) int64 {
	if s.FarmerID == nil {
		return 0
	}
	return *s.FarmerID
}

func areaOf(s land.LandSubmission) float64 {
	if s.AreaInAcre == nil {
		return 0
	}
	return *s.AreaInAcre
}

// Child table columns shared by both dialects.
var (
	coordinateColumns  = []string{"land_id", "seq", "coordinate_type", "latitude", "longitude"}
	referenceColumns   = []string{"land_id", "seq", "point_type", "latitude", "longitude"}
	suitabilityColumns = []string{"land_id", "seq", "suitability_id", "remarks"}
)

func coordinateRows(landID int64, recs []geo.CoordinateRecord) [][]any {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{landID, i, string(r.Type), r.Point.Latitude, r.Point.Longitude}
	}
	return rows
}

func referenceRows(landID int64, recs []geo.ReferencePointRecord) [][]any {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{landID, i, string(r.Type), r.Point.Latitude, r.Point.Longitude}
	}
	return rows
}

func suitabilityRows(landID int64, details []land.SuitabilityDetail) [][]any {
	rows := make([][]any, len(details))
	for i, d := range details {
		rows[i] = []any{landID, i, d.SuitabilityID, d.Remarks}
	}
	return rows
}

func measurementArgs(landID int64, m geo.MeasurementInfo) []any {
	return []any{landID, m.NCornerDist, m.ECornerDist, m.NMarkDist, m.EMarkDist, m.NeNw, m.NwSw, m.SeNe, m.SwSe}
}

func rawCoordinate(t string, lat, lng float64) geo.RawPoint {
	return geo.RawPoint{"latitude": lat, "longitude": lng, "coordinate_type": t}
}

func rawReference(t string, lat, lng float64) geo.RawPoint {
	return geo.RawPoint{"latitude": lat, "longitude": lng, "point_type": t}
}
