package geomatch

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/velomap/conflate/pkg/constants"
)

// Score is the outcome of comparing two segments: the symmetric Hausdorff
// shape distance and the direction-agnostic orientation difference in
// degrees.
type Score struct {
	Shape       float64
	Orientation float64
}

// Evaluator scores candidate pairs and applies the admissibility
// thresholds.
type Evaluator struct {
	// MaxHausdorff is the shape distance threshold H.
	MaxHausdorff float64

	// AngularThreshold is the orientation threshold in degrees.
	AngularThreshold float64
}

// Score computes the shape and orientation scores for a pair of segments.
func (e Evaluator) Score(query, candidate *Segment) Score {
	return Score{
		Shape:       Hausdorff(query, candidate),
		Orientation: OrientationDiff(query, candidate),
	}
}

// Admissible reports whether a scored pair is within both thresholds.
func (e Evaluator) Admissible(s Score) bool {
	return s.Shape <= e.MaxHausdorff && s.Orientation <= e.AngularThreshold
}

// Hausdorff returns the symmetric Hausdorff distance between two
// segments: the larger of the two directional max-of-min distances,
// computed over the densified sample points against the opposite exact
// geometry.
func Hausdorff(a, b *Segment) float64 {
	return math.Max(
		directedHausdorff(a.Samples(), b.Geometry),
		directedHausdorff(b.Samples(), a.Geometry),
	)
}

// directedHausdorff returns the maximum over the sample points of the
// minimum distance to the line.
func directedHausdorff(samples []orb.Point, line orb.LineString) float64 {
	var worst float64
	for _, p := range samples {
		if d := planar.DistanceFrom(line, p); d > worst {
			worst = d
		}
	}
	return worst
}

// OrientationDiff returns the absolute difference between the two
// segments' chord bearings, folded into [0°, 90°]. Infrastructure can be
// recorded in either direction, so a segment and its reverse have the
// same orientation.
func OrientationDiff(a, b *Segment) float64 {
	diff := math.Abs(chordBearing(a.Geometry) - chordBearing(b.Geometry))
	diff = math.Mod(diff, 180)
	if diff > 90 {
		diff = 180 - diff
	}
	return diff
}

// chordBearing returns the direction of the straight chord from the first
// to the last point of the line, in degrees within (-180, 180].
func chordBearing(line orb.LineString) float64 {
	first, last := line[0], line[len(line)-1]
	return math.Atan2(last[1]-first[1], last[0]-first[0]) * 180 / math.Pi
}

// resample returns n points spaced evenly by arc length along the line,
// including both endpoints. Degenerate lines collapse to their vertices.
func resample(line orb.LineString, n int) []orb.Point {
	if n < constants.MinSamplePoints {
		n = constants.MinSamplePoints
	}
	if n > constants.MaxSamplePoints {
		n = constants.MaxSamplePoints
	}

	total := planar.Length(line)
	if total <= constants.LengthEpsilon || len(line) < constants.MinSamplePoints {
		return append([]orb.Point(nil), line...)
	}

	step := total / float64(n-1)
	out := make([]orb.Point, 0, n)
	out = append(out, line[0])

	target := step
	travelled := 0.0
	for i := 1; i < len(line); i++ {
		from, to := line[i-1], line[i]
		edge := planar.Distance(from, to)

		for travelled+edge >= target && edge > 0 && len(out) < n-1 {
			t := (target - travelled) / edge
			out = append(out, interpolate(from, to, t))
			target += step
		}
		travelled += edge
	}

	out = append(out, line[len(line)-1])
	return out
}
