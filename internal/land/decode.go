package land

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/landgeo/internal/geo"
)

// DecodeSubmissionJSON decodes a loosely typed JSON create-land payload.
// Only malformed JSON is an error; unusable fields are left absent.
func DecodeSubmissionJSON(data []byte) (LandSubmission, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return LandSubmission{}, eris.Wrap(err, "land: decode submission")
	}
	return DecodeSubmission(raw), nil
}

// DecodeSubmission builds a LandSubmission from an untyped payload such as a
// decoded form body. Numeric fields accept numbers or numeric strings, point
// entries accept either {type, point:{latitude, longitude}} or the flat
// service shape, and unrecognised fields are ignored.
func DecodeSubmission(raw map[string]any) LandSubmission {
	var s LandSubmission

	if f, ok := geo.ToFloat(raw["farmer_id"]); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		id := int64(f)
		s.FarmerID = &id
	}
	if f, ok := geo.ToFloat(raw["area_in_acre"]); ok {
		s.AreaInAcre = &f
	}
	s.LandCode = stringField(raw, "land_code")
	s.OwnershipType = stringField(raw, "ownership_type")
	s.LandName = stringField(raw, "land_name")
	s.Image = stringField(raw, "image")

	for _, item := range objects(raw["suitability_details"]) {
		var d SuitabilityDetail
		id, ok := geo.ToFloat(item["suitability_id"])
		if !ok {
			id, ok = geo.ToFloat(item["land_suitability_id"])
		}
		if ok {
			d.SuitabilityID = int64(id)
		}
		d.Remarks = stringField(item, "remarks")
		s.SuitabilityDetails = append(s.SuitabilityDetails, d)
	}

	s.MeasurementInfo = decodeMeasurement(raw["measurement_info"])

	coords, _ := geo.ParseCoordinateRecords(flattenPoints(objects(raw["coordinate_points"]), "coordinate_type"))
	if len(coords) > 0 {
		s.CoordinatePoints = coords
	}
	refs, _ := geo.ParseReferenceRecords(flattenPoints(objects(raw["reference_points"]), "point_type"))
	if len(refs) > 0 {
		s.ReferencePoints = refs
	}
	return s
}

// decodeMeasurement accepts a single object or the service's one-element array.
func decodeMeasurement(v any) geo.MeasurementInfo {
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	default:
		if objs := objects(v); len(objs) > 0 {
			m = objs[0]
		}
	}
	if m == nil {
		return geo.MeasurementInfo{}
	}
	return geo.MeasurementInfo{
		NCornerDist: floatField(m, "n_corner_dist"),
		ECornerDist: floatField(m, "e_corner_dist"),
		NMarkDist:   floatField(m, "n_mark_dist"),
		EMarkDist:   floatField(m, "e_mark_dist"),
		NeNw:        floatField(m, "ne_nw"),
		NwSw:        floatField(m, "nw_sw"),
		SeNe:        floatField(m, "se_ne"),
		SwSe:        floatField(m, "sw_se"),
	}
}

// flattenPoints lifts nested {type, point:{...}} entries into the flat shape
// PointIngestion reads, storing the tag under tagKey.
func flattenPoints(items []map[string]any, tagKey string) []geo.RawPoint {
	out := make([]geo.RawPoint, 0, len(items))
	for _, item := range items {
		p := geo.RawPoint{}
		for k, v := range item {
			p[k] = v
		}
		if nested, ok := item["point"].(map[string]any); ok {
			for k, v := range nested {
				p[k] = v
			}
		}
		if t, ok := item["type"].(string); ok {
			if _, has := p[tagKey]; !has {
				p[tagKey] = t
			}
		}
		out = append(out, p)
	}
	return out
}

// objects returns the map elements of a JSON array value.
func objects(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]any, key string) *float64 {
	f, ok := geo.ToFloat(m[key])
	if !ok {
		return nil
	}
	return &f
}
