package geo

// MeasurementInfo holds field-measured distances. Each value is supplied by
// survey instruments and may be absent; none are derived from GeoPoints.
type MeasurementInfo struct {
	NCornerDist *float64 `json:"n_corner_dist" yaml:"n_corner_dist"`
	ECornerDist *float64 `json:"e_corner_dist" yaml:"e_corner_dist"`
	NMarkDist   *float64 `json:"n_mark_dist" yaml:"n_mark_dist"`
	EMarkDist   *float64 `json:"e_mark_dist" yaml:"e_mark_dist"`
	NeNw        *float64 `json:"ne_nw" yaml:"ne_nw"`
	NwSw        *float64 `json:"nw_sw" yaml:"nw_sw"`
	SeNe        *float64 `json:"se_ne" yaml:"se_ne"`
	SwSe        *float64 `json:"sw_se" yaml:"sw_se"`
}

// IsZero reports whether no measurement is present.
func (m MeasurementInfo) IsZero() bool {
	return m.NCornerDist == nil && m.ECornerDist == nil && m.NMarkDist == nil && m.EMarkDist == nil &&
		m.NeNw == nil && m.NwSw == nil && m.SeNe == nil && m.SwSe == nil
}

// Mark is a resolved reference point with its paired distance. Either field
// is nil when unknown.
type Mark struct {
	Point    *GeoPoint `json:"point" yaml:"point"`
	Distance *float64  `json:"distance" yaml:"distance"`
}

// DerivedMeasurement is the display-ready set of reference marks and scalar
// measurements for one parcel.
type DerivedMeasurement struct {
	SWMark       Mark `json:"sw_mark" yaml:"sw_mark"`
	NCorner      Mark `json:"n_corner" yaml:"n_corner"`
	ECorner      Mark `json:"e_corner" yaml:"e_corner"`
	NMark        Mark `json:"n_mark" yaml:"n_mark"`
	EMark        Mark `json:"e_mark" yaml:"e_mark"`
	Intersection Mark `json:"intersection" yaml:"intersection"`

	NeNw *float64 `json:"ne_nw" yaml:"ne_nw"`
	NwSw *float64 `json:"nw_sw" yaml:"nw_sw"`
	SeNe *float64 `json:"se_ne" yaml:"se_ne"`
	SwSe *float64 `json:"sw_se" yaml:"sw_se"`
}

// Length is the north side (NE to NW).
func (d DerivedMeasurement) Length() *float64 { return d.NeNw }

// Width is the west side (NW to SW).
func (d DerivedMeasurement) Width() *float64 { return d.NwSw }

// DeriveMeasurements resolves each reference role to its first point and
// pairs the mark roles with their measured distances. Duplicate marks beyond
// the first are ignored.
func DeriveMeasurements(refs *Groups[ReferencePointType], info MeasurementInfo) DerivedMeasurement {
	return DerivedMeasurement{
		SWMark:       Mark{Point: firstOf(refs, RefSWMark)},
		NCorner:      Mark{Point: firstOf(refs, RefNCorner), Distance: copyFloat(info.NCornerDist)},
		ECorner:      Mark{Point: firstOf(refs, RefECorner), Distance: copyFloat(info.ECornerDist)},
		NMark:        Mark{Point: firstOf(refs, RefNMark), Distance: copyFloat(info.NMarkDist)},
		EMark:        Mark{Point: firstOf(refs, RefEMark), Distance: copyFloat(info.EMarkDist)},
		Intersection: Mark{Point: firstOf(refs, RefIntersection)},
		NeNw:         copyFloat(info.NeNw),
		NwSw:         copyFloat(info.NwSw),
		SeNe:         copyFloat(info.SeNe),
		SwSe:         copyFloat(info.SwSe),
	}
}

func firstOf(refs *Groups[ReferencePointType], role ReferencePointType) *GeoPoint {
	p, ok := refs.First(role)
	if !ok {
		return nil
	}
	return &p
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
