// Package features defines the line-feature data model shared by the
// matching and conflation stages: immutable line features with dataset
// provenance, infrastructure classes, and free-form attributes.
package features

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Origin identifies which of the two input datasets a feature came from.
type Origin string

// The two datasets under reconciliation. The engine is neutral about what
// they are; in practice A is the crowdsourced network and B the
// authoritative one.
const (
	OriginA Origin = "A"
	OriginB Origin = "B"
)

// String returns the string representation of an origin.
func (o Origin) String() string {
	return string(o)
}

// Opposite returns the other dataset's origin.
func (o Origin) Opposite() Origin {
	if o == OriginA {
		return OriginB
	}
	return OriginA
}

// Valid reports whether the origin is one of the two known datasets.
func (o Origin) Valid() bool {
	return o == OriginA || o == OriginB
}

// Feature is a single line feature: an ordered coordinate sequence tagged
// with its dataset of origin, infrastructure class, and attributes.
// Features are treated as immutable once loaded; no pipeline stage mutates
// them.
type Feature struct {
	// ID uniquely identifies the feature within its dataset.
	ID string

	// Geometry is the ordered coordinate sequence of the line.
	Geometry orb.LineString

	// Origin is the dataset the feature belongs to.
	Origin Origin

	// Class is the infrastructure class of the feature.
	Class Class

	// Attributes holds arbitrary attribute keys and values. Empty values
	// count as absent.
	Attributes map[string]string

	// Version is the edit count of the feature, if the source records one.
	Version *int

	// Timestamp is the last edit time of the feature, if the source
	// records one.
	Timestamp *time.Time
}

// Length returns the planar geometry length of the feature.
func (f *Feature) Length() float64 {
	return planar.Length(f.Geometry)
}

// twoWayValues are the attribute values that mark a geometry as carrying
// infrastructure in both directions on a single shared line.
var twoWayValues = map[string]bool{
	"lane":           true,
	"opposite_lane":  true,
	"track":          true,
	"opposite_track": true,
}

// InfraLength returns the actual infrastructure length represented by the
// feature. Features tagged as two-way infrastructure on one geometry
// (cycleway, cycleway:both, or cycleway:left together with cycleway:right)
// share a single line but represent two separate infrastructures, so their
// geometry length counts double.
func (f *Feature) InfraLength() float64 {
	length := f.Length()

	if twoWayValues[f.Attributes["cycleway"]] {
		return length * 2
	}
	if twoWayValues[f.Attributes["cycleway:both"]] {
		return length * 2
	}
	if twoWayValues[f.Attributes["cycleway:left"]] && twoWayValues[f.Attributes["cycleway:right"]] {
		return length * 2
	}

	return length
}

// AttributeCount returns the number of attributes with a non-empty value.
func (f *Feature) AttributeCount() int {
	n := 0
	for _, v := range f.Attributes {
		if v != "" {
			n++
		}
	}
	return n
}

// Bound returns the bounding box of the feature geometry.
func (f *Feature) Bound() orb.Bound {
	return f.Geometry.Bound()
}
