package land

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/landgeo/internal/geo"
)

// Builder defaults.
const (
	DefaultOwnership       = "Owned"
	DefaultPlaceholderName = "Unnamed Land"
	DefaultCodePrefix      = "LAND"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the time source used for generated land codes.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithDefaultOwnership overrides the ownership type filled into blank submissions.
func WithDefaultOwnership(s string) BuilderOption {
	return func(b *Builder) {
		if s = strings.TrimSpace(s); s != "" {
			b.ownership = s
		}
	}
}

// WithPlaceholderName overrides the land name filled into blank submissions.
func WithPlaceholderName(s string) BuilderOption {
	return func(b *Builder) {
		if s = strings.TrimSpace(s); s != "" {
			b.placeholder = s
		}
	}
}

// WithCodePrefix overrides the generated land code prefix.
func WithCodePrefix(s string) BuilderOption {
	return func(b *Builder) {
		if s = strings.TrimSpace(s); s != "" {
			b.codePrefix = s
		}
	}
}

// Builder normalizes partial submissions into complete ones.
type Builder struct {
	now         func() time.Time
	ownership   string
	placeholder string
	codePrefix  string
}

// NewBuilder creates a Builder with the package defaults.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		now:         time.Now,
		ownership:   DefaultOwnership,
		placeholder: DefaultPlaceholderName,
		codePrefix:  DefaultCodePrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Normalize fills defaults and rebuilds every collection of partial into its
// canonical shape. Points that are out of range are dropped and known tags are
// folded to their canonical spelling. partial is not modified.
func (b *Builder) Normalize(partial LandSubmission) LandSubmission {
	out := LandSubmission{
		FarmerID:      copyInt(partial.FarmerID),
		LandCode:      strings.TrimSpace(partial.LandCode),
		AreaInAcre:    copyFloat(partial.AreaInAcre),
		OwnershipType: strings.TrimSpace(partial.OwnershipType),
		LandName:      strings.TrimSpace(partial.LandName),
		Image:         strings.TrimSpace(partial.Image),
		MeasurementInfo: geo.MeasurementInfo{
			NCornerDist: copyFloat(partial.MeasurementInfo.NCornerDist),
			ECornerDist: copyFloat(partial.MeasurementInfo.ECornerDist),
			NMarkDist:   copyFloat(partial.MeasurementInfo.NMarkDist),
			EMarkDist:   copyFloat(partial.MeasurementInfo.EMarkDist),
			NeNw:        copyFloat(partial.MeasurementInfo.NeNw),
			NwSw:        copyFloat(partial.MeasurementInfo.NwSw),
			SeNe:        copyFloat(partial.MeasurementInfo.SeNe),
			SwSe:        copyFloat(partial.MeasurementInfo.SwSe),
		},
		SuitabilityDetails: make([]SuitabilityDetail, 0, len(partial.SuitabilityDetails)),
		CoordinatePoints:   make([]geo.CoordinateRecord, 0, len(partial.CoordinatePoints)),
		ReferencePoints:    make([]geo.ReferencePointRecord, 0, len(partial.ReferencePoints)),
	}

	if out.OwnershipType == "" {
		out.OwnershipType = b.ownership
	}
	if out.LandName == "" {
		out.LandName = b.placeholder
	}
	if out.LandCode == "" {
		out.LandCode = b.landCode(out.FarmerID)
	}

	for _, s := range partial.SuitabilityDetails {
		out.SuitabilityDetails = append(out.SuitabilityDetails, SuitabilityDetail{
			SuitabilityID: s.SuitabilityID,
			Remarks:       strings.TrimSpace(s.Remarks),
		})
	}
	for _, c := range partial.CoordinatePoints {
		if !c.Point.Valid() {
			continue
		}
		out.CoordinatePoints = append(out.CoordinatePoints, geo.CoordinateRecord{
			Type:  geo.ParseCoordinateType(string(c.Type)),
			Point: c.Point,
		})
	}
	for _, r := range partial.ReferencePoints {
		if !r.Point.Valid() {
			continue
		}
		out.ReferencePoints = append(out.ReferencePoints, geo.ReferencePointRecord{
			Type:  geo.ParseReferencePointType(string(r.Type)),
			Point: r.Point,
		})
	}
	return out
}

// Prepare normalizes partial and validates the result. The normalized
// submission is returned even when validation fails.
func (b *Builder) Prepare(partial LandSubmission) (LandSubmission, error) {
	s := b.Normalize(partial)
	if msgs := Validate(s); len(msgs) > 0 {
		return s, ValidationError(msgs)
	}
	return s, nil
}

// landCode composes {prefix}-{farmer_id}-{epoch_millis}; an absent farmer
// renders as 0.
func (b *Builder) landCode(farmerID *int64) string {
	var id int64
	if farmerID != nil {
		id = *farmerID
	}
	return fmt.Sprintf("%s-%d-%d", b.codePrefix, id, b.now().UnixMilli())
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
