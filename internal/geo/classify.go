package geo

import (
	"strings"

	"golang.org/x/text/cases"
)

// CoordinateType tags a boundary point with the polygon it belongs to.
// Tags outside the known set are kept verbatim so upstream additions pass
// through untouched.
type CoordinateType string

// Boundary classifications.
const (
	CoordPlot       CoordinateType = "plot"
	CoordLandArea   CoordinateType = "land_area"
	CoordInnerArea  CoordinateType = "inner_area"
	CoordPlotManual CoordinateType = "plot_manual"
)

// ReferencePointType tags a single survey mark.
type ReferencePointType string

// Reference mark roles.
const (
	RefSWMark       ReferencePointType = "sw_mark"
	RefNCorner      ReferencePointType = "n_corner"
	RefECorner      ReferencePointType = "e_corner"
	RefNMark        ReferencePointType = "n_mark"
	RefEMark        ReferencePointType = "e_mark"
	RefIntersection ReferencePointType = "intersection"
)

// CoordinateTypes lists the known boundary classifications.
var CoordinateTypes = []CoordinateType{CoordPlot, CoordLandArea, CoordInnerArea, CoordPlotManual}

// ReferencePointTypes lists the known reference roles in display order.
var ReferencePointTypes = []ReferencePointType{RefSWMark, RefNCorner, RefECorner, RefNMark, RefEMark, RefIntersection}

// IsKnown reports whether t is one of the named boundary classifications.
func (t CoordinateType) IsKnown() bool {
	for _, k := range CoordinateTypes {
		if t == k {
			return true
		}
	}
	return false
}

// IsKnown reports whether t is one of the named reference roles.
func (t ReferencePointType) IsKnown() bool {
	for _, k := range ReferencePointTypes {
		if t == k {
			return true
		}
	}
	return false
}

// ParseCoordinateType maps a raw tag onto a known CoordinateType, ignoring
// case, surrounding space and hyphen/underscore differences. Unknown tags are
// returned unchanged.
func ParseCoordinateType(tag string) CoordinateType {
	key := foldTag(tag)
	for _, k := range CoordinateTypes {
		if string(k) == key {
			return k
		}
	}
	return CoordinateType(tag)
}

// ParseReferencePointType is the ReferencePointType analogue of
// ParseCoordinateType.
func ParseReferencePointType(tag string) ReferencePointType {
	key := foldTag(tag)
	for _, k := range ReferencePointTypes {
		if string(k) == key {
			return k
		}
	}
	return ReferencePointType(tag)
}

// foldTag builds a fresh Caser per call; Casers carry state and must not be
// shared between goroutines.
func foldTag(tag string) string {
	s := cases.Fold().String(strings.TrimSpace(tag))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// CoordinateRecord is a member of a boundary group. Order within a group is
// meaningless until OrderPolygon runs.
type CoordinateRecord struct {
	Type  CoordinateType `json:"type" yaml:"type"`
	Point GeoPoint       `json:"point" yaml:"point"`
}

// ReferencePointRecord is a single tagged survey mark.
type ReferencePointRecord struct {
	Type  ReferencePointType `json:"type" yaml:"type"`
	Point GeoPoint           `json:"point" yaml:"point"`
}
