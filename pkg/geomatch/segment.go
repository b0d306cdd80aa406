package geomatch

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/velomap/conflate/pkg/features"
)

// samplesPerVertex controls the densification of segment geometries for
// distance evaluation.
const samplesPerVertex = 4

// Segment is a contiguous piece of a feature's geometry of roughly the
// target segment length. Segments are the atomic unit of matching; each
// belongs to exactly one feature and is discarded after reassembly.
type Segment struct {
	// ID is "<feature>#<index>", the deterministic tie-break key.
	ID string

	// Feature is the owning feature.
	Feature *features.Feature

	// Index is the ordinal position of the segment within its feature.
	Index int

	// Geometry is the segment's coordinate sequence, in feature order.
	Geometry orb.LineString

	length   float64
	centroid orb.Point
	samples  []orb.Point
}

// newSegment builds a segment and precomputes its length, centroid, and
// densified sample points. Precomputing keeps the segment safe to share
// across parallel lookups.
func newSegment(f *features.Feature, index int, geom orb.LineString) *Segment {
	s := &Segment{
		ID:       SegmentID(f.ID, index),
		Feature:  f,
		Index:    index,
		Geometry: geom,
		length:   planar.Length(geom),
	}
	s.samples = resample(geom, samplesPerVertex*len(geom))
	s.centroid = meanPoint(s.samples)
	return s
}

// SegmentID returns the identifier of a feature's segment at the given
// ordinal position.
func SegmentID(featureID string, index int) string {
	return fmt.Sprintf("%s#%d", featureID, index)
}

// Length returns the planar length of the segment geometry.
func (s *Segment) Length() float64 {
	return s.length
}

// Point returns the segment centroid, making segments indexable by the
// spatial index.
func (s *Segment) Point() orb.Point {
	return s.centroid
}

// Samples returns the densified sample points along the segment.
func (s *Segment) Samples() []orb.Point {
	return s.samples
}

// Bound returns the bounding box of the segment geometry.
func (s *Segment) Bound() orb.Bound {
	return s.Geometry.Bound()
}

// radius returns the largest distance from the centroid to any point of
// the segment, used to size conservative index queries.
func (s *Segment) radius() float64 {
	var r float64
	for _, p := range s.Geometry {
		if d := planar.Distance(s.centroid, p); d > r {
			r = d
		}
	}
	return r
}

// meanPoint returns the arithmetic mean of the given points.
func meanPoint(pts []orb.Point) orb.Point {
	var x, y float64
	for _, p := range pts {
		x += p[0]
		y += p[1]
	}
	n := float64(len(pts))
	return orb.Point{x / n, y / n}
}
