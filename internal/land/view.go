package land

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/landgeo/internal/geo"
)

// View is the render-ready model of one land parcel. Boundary groups are
// polygon-ordered; marks and distances are nil when unknown.
type View struct {
	LandID        int64   `json:"landId" yaml:"landId"`
	LandName      string  `json:"landName" yaml:"landName"`
	FarmerID      int64   `json:"farmerId" yaml:"farmerId"`
	FarmerName    string  `json:"farmerName" yaml:"farmerName"`
	MobileNumber  string  `json:"mobileNumber" yaml:"mobileNumber"`
	AreaInAcre    float64 `json:"areaInAcre" yaml:"areaInAcre"`
	OwnershipType string  `json:"ownershipType" yaml:"ownershipType"`
	Image         string  `json:"image,omitempty" yaml:"image,omitempty"`

	PlotCoordinates   []geo.GeoPoint            `json:"plotCoordinates" yaml:"plotCoordinates"`
	LandCoordinates   []geo.GeoPoint            `json:"landCoordinates" yaml:"landCoordinates"`
	InnerCoordinates  []geo.GeoPoint            `json:"innerCoordinates" yaml:"innerCoordinates"`
	ManualCoordinates []geo.GeoPoint            `json:"manualCoordinates" yaml:"manualCoordinates"`
	OtherCoordinates  map[string][]geo.GeoPoint `json:"otherCoordinates,omitempty" yaml:"otherCoordinates,omitempty"`

	SWMark       *geo.GeoPoint `json:"swMark" yaml:"swMark"`
	NCorner      *geo.GeoPoint `json:"nCorner" yaml:"nCorner"`
	ECorner      *geo.GeoPoint `json:"eCorner" yaml:"eCorner"`
	NMark        *geo.GeoPoint `json:"nMark" yaml:"nMark"`
	EMark        *geo.GeoPoint `json:"eMark" yaml:"eMark"`
	Intersection *geo.GeoPoint `json:"intersection" yaml:"intersection"`

	NMarkDist   *float64 `json:"nMarkDist" yaml:"nMarkDist"`
	EMarkDist   *float64 `json:"eMarkDist" yaml:"eMarkDist"`
	NCornerDist *float64 `json:"nCornerDist" yaml:"nCornerDist"`
	ECornerDist *float64 `json:"eCornerDist" yaml:"eCornerDist"`
	Length      *float64 `json:"length" yaml:"length"`
	Width       *float64 `json:"width" yaml:"width"`

	Bounds      *geo.BBox         `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Suitability []SuitabilityView `json:"suitability" yaml:"suitability"`
	Dropped     []DroppedPoint    `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// DroppedPoint reports a malformed input point skipped while building a view.
type DroppedPoint struct {
	Source string `json:"source" yaml:"source"` // land_coordinate_point or land_reference_point
	Index  int    `json:"index" yaml:"index"`
	Reason string `json:"reason" yaml:"reason"`
}

// SuitabilityView is a suitability tag as shown to the user.
type SuitabilityView struct {
	ID      int64  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Remarks string `json:"remarks" yaml:"remarks"`
}

// Boundary is one ordered boundary polygon of a view.
type Boundary struct {
	Group  geo.CoordinateType
	Points []geo.GeoPoint
}

// RoleMark is one resolved reference mark of a view.
type RoleMark struct {
	Role  geo.ReferencePointType
	Point geo.GeoPoint
}

// BuildView turns a stored record into its render model: points are parsed
// and grouped, each boundary group is ordered on its own, and reference marks
// are resolved against the first measurement entry.
func BuildView(rec LandRecord) View {
	coords, coordDrops := geo.ParseCoordinateRecords(rec.CoordinatePoints)
	refs, refDrops := geo.ParseReferenceRecords(rec.ReferencePoints)

	groups := geo.GroupByCoordinateType(coords)
	derived := geo.DeriveMeasurements(geo.GroupByReferenceType(refs), rec.Measurement())

	v := View{
		LandID:        rec.LandID,
		LandName:      rec.LandName,
		FarmerID:      rec.FarmerID,
		FarmerName:    rec.FarmerName,
		MobileNumber:  rec.MobileNumber,
		AreaInAcre:    rec.AreaInAcre,
		OwnershipType: rec.OwnershipType,
		Image:         rec.Image,

		PlotCoordinates:   geo.OrderPolygon(groups.Get(geo.CoordPlot)),
		LandCoordinates:   geo.OrderPolygon(groups.Get(geo.CoordLandArea)),
		InnerCoordinates:  geo.OrderPolygon(groups.Get(geo.CoordInnerArea)),
		ManualCoordinates: geo.OrderPolygon(groups.Get(geo.CoordPlotManual)),

		SWMark:       derived.SWMark.Point,
		NCorner:      derived.NCorner.Point,
		ECorner:      derived.ECorner.Point,
		NMark:        derived.NMark.Point,
		EMark:        derived.EMark.Point,
		Intersection: derived.Intersection.Point,

		NMarkDist:   derived.NMark.Distance,
		EMarkDist:   derived.EMark.Distance,
		NCornerDist: derived.NCorner.Distance,
		ECornerDist: derived.ECorner.Distance,
		Length:      derived.Length(),
		Width:       derived.Width(),

		Suitability: make([]SuitabilityView, 0, len(rec.SuitabilityDetails)),
	}

	for _, k := range groups.Keys() {
		if k.IsKnown() {
			continue
		}
		if v.OtherCoordinates == nil {
			v.OtherCoordinates = make(map[string][]geo.GeoPoint)
		}
		v.OtherCoordinates[string(k)] = geo.OrderPolygon(groups.Get(k))
	}

	for _, s := range rec.SuitabilityDetails {
		v.Suitability = append(v.Suitability, SuitabilityView{
			ID:      s.LandSuitabilityID,
			Name:    s.LandSuitabilityName,
			Remarks: s.Remarks,
		})
	}

	v.Dropped = appendDrops(v.Dropped, "land_coordinate_point", coordDrops)
	v.Dropped = appendDrops(v.Dropped, "land_reference_point", refDrops)
	v.Bounds = geo.BoundsOf(groups.Flatten(), markPoints(v))
	return v
}

// BuildViews renders many records concurrently, at most limit at a time.
// Results keep input order. The only error is context cancellation.
func BuildViews(ctx context.Context, recs []LandRecord, limit int) ([]View, error) {
	views := make([]View, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			views[i] = BuildView(recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "land: build views")
	}
	return views, nil
}

// Boundaries returns the non-empty boundary groups: known groups first in a
// fixed order, then unrecognised tags sorted by name.
func (v View) Boundaries() []Boundary {
	var out []Boundary
	for _, b := range []Boundary{
		{Group: geo.CoordPlot, Points: v.PlotCoordinates},
		{Group: geo.CoordLandArea, Points: v.LandCoordinates},
		{Group: geo.CoordInnerArea, Points: v.InnerCoordinates},
		{Group: geo.CoordPlotManual, Points: v.ManualCoordinates},
	} {
		if len(b.Points) > 0 {
			out = append(out, b)
		}
	}

	others := make([]string, 0, len(v.OtherCoordinates))
	for k := range v.OtherCoordinates {
		others = append(others, k)
	}
	sort.Strings(others)
	for _, k := range others {
		if pts := v.OtherCoordinates[k]; len(pts) > 0 {
			out = append(out, Boundary{Group: geo.CoordinateType(k), Points: pts})
		}
	}
	return out
}

// Marks returns the resolved reference marks in role order.
func (v View) Marks() []RoleMark {
	var out []RoleMark
	for _, m := range []struct {
		role geo.ReferencePointType
		p    *geo.GeoPoint
	}{
		{geo.RefSWMark, v.SWMark},
		{geo.RefNCorner, v.NCorner},
		{geo.RefECorner, v.ECorner},
		{geo.RefNMark, v.NMark},
		{geo.RefEMark, v.EMark},
		{geo.RefIntersection, v.Intersection},
	} {
		if m.p != nil {
			out = append(out, RoleMark{Role: m.role, Point: *m.p})
		}
	}
	return out
}

func appendDrops(dst []DroppedPoint, source string, drops []geo.Drop) []DroppedPoint {
	for _, d := range drops {
		dst = append(dst, DroppedPoint{Source: source, Index: d.Index, Reason: d.Reason})
	}
	return dst
}

func markPoints(v View) []geo.GeoPoint {
	marks := v.Marks()
	pts := make([]geo.GeoPoint, len(marks))
	for i, m := range marks {
		pts[i] = m.Point
	}
	return pts
}
