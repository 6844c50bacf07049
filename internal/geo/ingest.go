package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RawPoint is a decoded point object as delivered by the land-information
// service or a client form. Field names and value types vary by source.
type RawPoint map[string]any

// Accepted field names, in lookup priority order.
var (
	latitudeKeys       = []string{"latitude", "lat", "Latitude", "Lat"}
	longitudeKeys      = []string{"longitude", "lng", "lon", "long", "Longitude", "Lng", "Lon"}
	coordinateTypeKeys = []string{"coordinate_type", "type"}
	referenceTypeKeys  = []string{"point_type", "type"}
)

// Drop reasons.
const (
	ReasonMissingLatitude  = "missing latitude"
	ReasonMissingLongitude = "missing longitude"
	ReasonBadLatitude      = "latitude not numeric"
	ReasonBadLongitude     = "longitude not numeric"
	ReasonLatitudeRange    = "latitude out of range"
	ReasonLongitudeRange   = "longitude out of range"
)

// Drop records an input entry rejected during ingestion.
type Drop struct {
	Index  int    `json:"index" yaml:"index"`
	Reason string `json:"reason" yaml:"reason"`
}

// IngestResult holds surviving points in input order and the drop list.
type IngestResult struct {
	Points  []GeoPoint `json:"points" yaml:"points"`
	Dropped []Drop     `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// ParsePoints converts raw point objects into GeoPoints. Malformed entries are
// skipped and reported in Dropped; ParsePoints never fails.
func ParsePoints(raw []RawPoint) IngestResult {
	res := IngestResult{Points: make([]GeoPoint, 0, len(raw))}
	for i, r := range raw {
		p, reason := parsePoint(r)
		if reason != "" {
			res.Dropped = append(res.Dropped, dropAt(i, reason))
			continue
		}
		res.Points = append(res.Points, p)
	}
	return res
}

// ParseCoordinateRecords parses tagged boundary points. The tag is read from
// coordinate_type, falling back to type.
func ParseCoordinateRecords(raw []RawPoint) ([]CoordinateRecord, []Drop) {
	recs := make([]CoordinateRecord, 0, len(raw))
	var dropped []Drop
	for i, r := range raw {
		p, reason := parsePoint(r)
		if reason != "" {
			dropped = append(dropped, dropAt(i, reason))
			continue
		}
		recs = append(recs, CoordinateRecord{
			Type:  ParseCoordinateType(lookupString(r, coordinateTypeKeys)),
			Point: p,
		})
	}
	return recs, dropped
}

// ParseReferenceRecords parses tagged reference marks. The tag is read from
// point_type, falling back to type.
func ParseReferenceRecords(raw []RawPoint) ([]ReferencePointRecord, []Drop) {
	recs := make([]ReferencePointRecord, 0, len(raw))
	var dropped []Drop
	for i, r := range raw {
		p, reason := parsePoint(r)
		if reason != "" {
			dropped = append(dropped, dropAt(i, reason))
			continue
		}
		recs = append(recs, ReferencePointRecord{
			Type:  ParseReferencePointType(lookupString(r, referenceTypeKeys)),
			Point: p,
		})
	}
	return recs, dropped
}

func dropAt(i int, reason string) Drop {
	zap.L().Debug("geo: dropping malformed point", zap.Int("index", i), zap.String("reason", reason))
	return Drop{Index: i, Reason: reason}
}

// parsePoint returns the point or a non-empty drop reason.
func parsePoint(r RawPoint) (GeoPoint, string) {
	latRaw, ok := lookup(r, latitudeKeys)
	if !ok {
		return GeoPoint{}, ReasonMissingLatitude
	}
	lngRaw, ok := lookup(r, longitudeKeys)
	if !ok {
		return GeoPoint{}, ReasonMissingLongitude
	}
	lat, ok := ToFloat(latRaw)
	if !ok {
		return GeoPoint{}, ReasonBadLatitude
	}
	lng, ok := ToFloat(lngRaw)
	if !ok {
		return GeoPoint{}, ReasonBadLongitude
	}
	if !validLatitude(lat) {
		return GeoPoint{}, ReasonLatitudeRange
	}
	if !validLongitude(lng) {
		return GeoPoint{}, ReasonLongitudeRange
	}
	return GeoPoint{Latitude: lat, Longitude: lng}, ""
}

// lookup returns the first non-nil value among keys.
func lookup(r RawPoint, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(r RawPoint, keys []string) string {
	v, ok := lookup(r, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		// numeric or boolean tags are kept in their printed form
		return fmt.Sprint(s)
	}
}

// ToFloat converts a numeric value or numeric string to float64. Non-finite
// results are rejected.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if !finite(f) {
		return 0, false
	}
	return f, true
}
