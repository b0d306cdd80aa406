package geomatch

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/features"
)

func originSegment(t *testing.T, id string, origin features.Origin, class features.Class, pts ...orb.Point) *Segment {
	t.Helper()
	f := lineFeature(id, class, pts...)
	f.Origin = origin
	segs, err := SplitFeature(f, 1e12)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	return segs[0]
}

func TestIndexCandidatesWithinBuffer(t *testing.T) {
	near := originSegment(t, "b-near", features.OriginB, features.ClassCycleTrack,
		orb.Point{0, 1}, orb.Point{10, 1})
	far := originSegment(t, "b-far", features.OriginB, features.ClassCycleTrack,
		orb.Point{0, 50}, orb.Point{10, 50})
	ix := NewIndex([]*Segment{near, far})

	query := originSegment(t, "a-q", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 0}, orb.Point{10, 0})

	cands := ix.Candidates(query, 5)
	require.Len(t, cands, 1)
	assert.Equal(t, "b-near#0", cands[0].ID)
}

func TestIndexCandidatesEmptyIsNormal(t *testing.T) {
	ix := NewIndex(nil)
	query := originSegment(t, "a-q", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 0}, orb.Point{10, 0})

	assert.Empty(t, ix.Candidates(query, 5))
}

func TestIndexCandidatesFilterClassAndOrigin(t *testing.T) {
	sameClass := originSegment(t, "b1", features.OriginB, features.ClassCycleTrack,
		orb.Point{0, 1}, orb.Point{10, 1})
	otherClass := originSegment(t, "b2", features.OriginB, features.ClassCycleLane,
		orb.Point{0, 2}, orb.Point{10, 2})
	sameOrigin := originSegment(t, "a2", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 3}, orb.Point{10, 3})
	ix := NewIndex([]*Segment{sameClass, otherClass, sameOrigin})

	query := originSegment(t, "a1", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 0}, orb.Point{10, 0})

	cands := ix.Candidates(query, 10)
	require.Len(t, cands, 1)
	assert.Equal(t, "b1#0", cands[0].ID)
}

func TestIndexCandidatesSortedByID(t *testing.T) {
	var segs []*Segment
	for _, id := range []string{"b3", "b1", "b2"} {
		segs = append(segs, originSegment(t, id, features.OriginB, features.ClassCycleTrack,
			orb.Point{0, 1}, orb.Point{10, 1}))
	}
	ix := NewIndex(segs)

	query := originSegment(t, "a1", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 0}, orb.Point{10, 0})

	var ids []string
	for _, c := range ix.Candidates(query, 5) {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b1#0", "b2#0", "b3#0"}, ids)
}

func TestIndexFindsLongCandidateByNearEnd(t *testing.T) {
	// The candidate centroid is far from the query, but its near end is
	// within the buffer; the padded-bound prefilter must not lose it.
	long := originSegment(t, "b-long", features.OriginB, features.ClassCycleTrack,
		orb.Point{0, 1}, orb.Point{200, 1})
	ix := NewIndex([]*Segment{long})

	query := originSegment(t, "a-q", features.OriginA, features.ClassCycleTrack,
		orb.Point{0, 0}, orb.Point{5, 0})

	require.Len(t, ix.Candidates(query, 2), 1)
}
