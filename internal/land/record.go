// Package land adapts land-information records into render-ready views and
// assembles validated land submissions.
package land

import (
	"github.com/sells-group/landgeo/internal/geo"
)

// LandRecord is a land parcel as returned by the land-information service.
// Point arrays stay loosely typed because the service mixes numeric and
// string coordinates; everything else is decoded strictly here so a renamed
// upstream field fails at this boundary.
type LandRecord struct {
	LandID        int64   `json:"land_id" yaml:"land_id"`
	LandName      string  `json:"land_name" yaml:"land_name"`
	FarmerID      int64   `json:"farmer_id" yaml:"farmer_id"`
	FarmerName    string  `json:"farmer_name" yaml:"farmer_name"`
	MobileNumber  string  `json:"mobile_number" yaml:"mobile_number"`
	AreaInAcre    float64 `json:"area_in_acre" yaml:"area_in_acre"`
	OwnershipType string  `json:"ownership_type" yaml:"ownership_type"`
	Image         string  `json:"image" yaml:"image"`

	CoordinatePoints   []geo.RawPoint        `json:"land_coordinate_point" yaml:"land_coordinate_point"`
	ReferencePoints    []geo.RawPoint        `json:"land_reference_point" yaml:"land_reference_point"`
	MeasurementInfo    []geo.MeasurementInfo `json:"land_measurement_info" yaml:"land_measurement_info"`
	SuitabilityDetails []SuitabilityRecord   `json:"land_suitability_details" yaml:"land_suitability_details"`
}

// SuitabilityRecord is a suitability tag attached to a stored parcel.
type SuitabilityRecord struct {
	LandSuitabilityID   int64  `json:"land_suitability_id" yaml:"land_suitability_id"`
	LandSuitabilityName string `json:"land_suitability_name" yaml:"land_suitability_name"`
	Remarks             string `json:"remarks" yaml:"remarks"`
}

// Measurement returns the first measurement entry, or an empty one.
func (r LandRecord) Measurement() geo.MeasurementInfo {
	if len(r.MeasurementInfo) == 0 {
		return geo.MeasurementInfo{}
	}
	return r.MeasurementInfo[0]
}
