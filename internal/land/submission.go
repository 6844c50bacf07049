package land

import (
	"math"
	"strings"

	"github.com/sells-group/landgeo/internal/geo"
)

// SuitabilityDetail tags a new parcel with a suitability class.
type SuitabilityDetail struct {
	SuitabilityID int64  `json:"suitability_id" yaml:"suitability_id"`
	Remarks       string `json:"remarks" yaml:"remarks"`
}

// LandSubmission is the create-land payload. Zero values mean "absent", so a
// partially filled LandSubmission doubles as the partial input to Normalize.
type LandSubmission struct {
	FarmerID           *int64                     `json:"farmer_id" yaml:"farmer_id"`
	LandCode           string                     `json:"land_code" yaml:"land_code"`
	AreaInAcre         *float64                   `json:"area_in_acre" yaml:"area_in_acre"`
	OwnershipType      string                     `json:"ownership_type" yaml:"ownership_type"`
	LandName           string                     `json:"land_name" yaml:"land_name"`
	Image              string                     `json:"image,omitempty" yaml:"image,omitempty"`
	SuitabilityDetails []SuitabilityDetail        `json:"suitability_details" yaml:"suitability_details"`
	MeasurementInfo    geo.MeasurementInfo        `json:"measurement_info" yaml:"measurement_info"`
	CoordinatePoints   []geo.CoordinateRecord     `json:"coordinate_points" yaml:"coordinate_points"`
	ReferencePoints    []geo.ReferencePointRecord `json:"reference_points" yaml:"reference_points"`
}

// Validation messages, one per check.
const (
	MsgFarmerID           = "farmer_id must be a number"
	MsgAreaInAcre         = "area_in_acre must be a number greater than 0"
	MsgOwnershipType      = "ownership_type is required"
	MsgLandName           = "land_name is required"
	MsgSuitabilityDetails = "suitability_details must contain at least one entry"
	MsgCoordinatePoints   = "coordinate_points must contain at least one point"
	MsgReferencePoints    = "reference_points must contain at least one point"
)

// Validate runs every submission check and returns all failures. An empty
// slice means the submission may be sent.
func Validate(s LandSubmission) []string {
	msgs := []string{}
	if s.FarmerID == nil {
		msgs = append(msgs, MsgFarmerID)
	}
	if s.AreaInAcre == nil || math.IsNaN(*s.AreaInAcre) || math.IsInf(*s.AreaInAcre, 0) || *s.AreaInAcre <= 0 {
		msgs = append(msgs, MsgAreaInAcre)
	}
	if strings.TrimSpace(s.OwnershipType) == "" {
		msgs = append(msgs, MsgOwnershipType)
	}
	if strings.TrimSpace(s.LandName) == "" {
		msgs = append(msgs, MsgLandName)
	}
	if len(s.SuitabilityDetails) == 0 {
		msgs = append(msgs, MsgSuitabilityDetails)
	}
	if len(s.CoordinatePoints) == 0 {
		msgs = append(msgs, MsgCoordinatePoints)
	}
	if len(s.ReferencePoints) == 0 {
		msgs = append(msgs, MsgReferencePoints)
	}
	return msgs
}

// ValidationError carries the full list of failed submission checks.
type ValidationError []string

func (e ValidationError) Error() string {
	return "land: invalid submission: " + strings.Join(e, "; ")
}
