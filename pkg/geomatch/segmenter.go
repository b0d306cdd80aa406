package geomatch

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
)

// SplitFeature cuts a feature into segments of the target length. Cuts
// happen at cumulative-distance boundaries with a point interpolated at
// the exact cut position, so the union of segment lengths equals the
// feature length. The final segment may be shorter than the target but is
// never zero-length; a feature shorter than the target yields exactly one
// segment covering the whole feature.
func SplitFeature(f *features.Feature, segmentLength float64) ([]*Segment, error) {
	if len(f.Geometry) < constants.MinSamplePoints {
		return nil, errors.NewDegenerateGeometryError(f.ID, len(f.Geometry), 0)
	}
	total := planar.Length(f.Geometry)
	if total <= constants.LengthEpsilon {
		return nil, errors.NewDegenerateGeometryError(f.ID, len(f.Geometry), total)
	}

	var segments []*Segment
	current := orb.LineString{f.Geometry[0]}
	carried := 0.0

	emit := func(geom orb.LineString) {
		segments = append(segments, newSegment(f, len(segments), geom))
	}

	for i := 1; i < len(f.Geometry); i++ {
		from := current[len(current)-1]
		to := f.Geometry[i]
		edge := planar.Distance(from, to)

		for carried+edge >= segmentLength && edge > 0 {
			t := (segmentLength - carried) / edge
			cut := interpolate(from, to, t)
			current = append(current, cut)
			emit(current)

			current = orb.LineString{cut}
			from = cut
			edge = planar.Distance(from, to)
			carried = 0
		}

		current = append(current, to)
		carried += edge
	}

	// Remainder after the last full cut. A cut landing exactly on the
	// feature endpoint leaves nothing behind.
	if len(current) >= constants.MinSamplePoints && planar.Length(current) > constants.LengthEpsilon {
		emit(current)
	}

	return segments, nil
}

// SegmentDataset segments every feature of a dataset, in ID order.
// Degenerate features are dropped and returned as diagnostics rather than
// failing the run.
func SegmentDataset(ds *features.Dataset, segmentLength float64) ([]*Segment, []string) {
	var segments []*Segment
	var degenerate []string

	for _, f := range ds.Features() {
		segs, err := SplitFeature(f, segmentLength)
		if err != nil {
			degenerate = append(degenerate, f.ID)
			continue
		}
		segments = append(segments, segs...)
	}

	sort.Strings(degenerate)
	return segments, degenerate
}

// interpolate returns the point at fraction t along the edge from a to b.
func interpolate(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
	}
}
