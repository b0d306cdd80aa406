package geomatch

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/velomap/conflate/pkg/constants"
)

// Index is the candidate finder: a quadtree over segment centroids,
// read-only once built and safe to share across parallel lookups.
type Index struct {
	tree      *quadtree.Quadtree
	maxRadius float64
	size      int
}

// NewIndex builds a spatial index over the given segments.
func NewIndex(segments []*Segment) *Index {
	ix := &Index{
		tree: quadtree.New(indexBound(segments)),
		size: len(segments),
	}
	for _, s := range segments {
		// Add only fails for points outside the bound, which the bound
		// construction rules out.
		_ = ix.tree.Add(s)
		if r := s.radius(); r > ix.maxRadius {
			ix.maxRadius = r
		}
	}
	return ix
}

// Len returns the number of indexed segments.
func (ix *Index) Len() int {
	return ix.size
}

// Candidates returns every indexed segment of the query's infrastructure
// class whose geometry lies within the buffer distance of the query,
// sorted by segment ID. An empty result is the normal no-match path, not
// an error.
func (ix *Index) Candidates(query *Segment, buffer float64) []*Segment {
	if ix.size == 0 {
		return nil
	}

	// Centroids of qualifying candidates can sit at most buffer plus the
	// largest centroid-to-extremity radius away from the query geometry.
	pad := buffer + ix.maxRadius + query.radius()
	area := query.Bound().Pad(pad)

	var out []*Segment
	for _, ptr := range ix.tree.InBound(nil, area) {
		cand := ptr.(*Segment)
		if cand.Feature.Class != query.Feature.Class {
			continue
		}
		if cand.Feature.Origin == query.Feature.Origin {
			continue
		}
		if minDistance(query, cand) <= buffer {
			out = append(out, cand)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// minDistance approximates the minimum distance between two segment
// geometries: the smallest distance from either segment's sample points
// to the other's exact geometry.
func minDistance(a, b *Segment) float64 {
	best := planar.DistanceFrom(b.Geometry, a.Samples()[0])
	for _, p := range a.Samples()[1:] {
		if d := planar.DistanceFrom(b.Geometry, p); d < best {
			best = d
		}
	}
	for _, p := range b.Samples() {
		if d := planar.DistanceFrom(a.Geometry, p); d < best {
			best = d
		}
	}
	return best
}

// indexBound returns a bound containing every segment centroid, slightly
// padded so boundary points never fall outside.
func indexBound(segments []*Segment) orb.Bound {
	if len(segments) == 0 {
		return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	}

	b := orb.Bound{Min: segments[0].Point(), Max: segments[0].Point()}
	for _, s := range segments[1:] {
		b = b.Extend(s.Point())
	}
	if b.Min == b.Max {
		return b.Pad(1)
	}
	return b.Pad(constants.LengthEpsilon)
}
