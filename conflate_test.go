package conflate

import (
	"bytes"
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/logging"
)

// testNetwork builds two small overlapping networks: a1/b1 run alongside
// each other, a2 and b2 exist on one side only.
func testNetwork(t *testing.T) (*features.Dataset, *features.Dataset) {
	t.Helper()

	dsA := features.NewDataset(features.OriginA)
	require.NoError(t, dsA.Add(&features.Feature{
		ID:       "a1",
		Class:    features.ClassCycleTrack,
		Geometry: orb.LineString{{0, 0}, {40, 0}},
	}))
	require.NoError(t, dsA.Add(&features.Feature{
		ID:       "a2",
		Class:    features.ClassCycleTrack,
		Geometry: orb.LineString{{0, 100}, {40, 100}},
	}))

	dsB := features.NewDataset(features.OriginB)
	require.NoError(t, dsB.Add(&features.Feature{
		ID:       "b1",
		Class:    features.ClassCycleTrack,
		Geometry: orb.LineString{{0, 0.5}, {40, 0.5}},
	}))
	require.NoError(t, dsB.Add(&features.Feature{
		ID:       "b2",
		Class:    features.ClassCycleTrack,
		Geometry: orb.LineString{{0, 200}, {40, 200}},
	}))

	return dsA, dsB
}

func TestNewValidatesConfig(t *testing.T) {
	dsA, dsB := testNetwork(t)

	_, err := New(WithDatasets(dsA, dsB), WithSegmentLength(-1))
	require.Error(t, err)

	_, err = New(WithDatasets(dsA, dsB), WithAngularThreshold(120))
	require.Error(t, err)

	_, err = New(WithSegmentLength(10))
	require.Error(t, err)
}

func TestRunMatchesOverlappingFeatures(t *testing.T) {
	dsA, dsB := testNetwork(t)

	c, err := New(WithDatasets(dsA, dsB), WithLogger(&logging.Nop))
	require.NoError(t, err)

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	byID := make(map[string]*conflation.Decision)
	for _, d := range result.Accepted {
		byID[d.ID] = d
	}

	require.Contains(t, byID, "A:a1")
	assert.Equal(t, conflation.PathMatched, byID["A:a1"].Path)
	assert.True(t, byID["A:a1"].Emitted)
	assert.Equal(t, []string{"b1"}, byID["A:a1"].DerivedFrom)

	// b1 matched too, but dataset A is the base model.
	require.Contains(t, byID, "B:b1")
	assert.False(t, byID["B:b1"].Emitted)

	// The one-sided features come through the NoCheck path.
	assert.Equal(t, conflation.PathAutoTrusted, byID["A:a2"].Path)
	assert.Equal(t, conflation.PathAutoTrusted, byID["B:b2"].Path)

	assert.InDelta(t, 50.0, result.StatsAToB.Percent, 1e-9)
	assert.InDelta(t, 50.0, result.StatsBToA.Percent, 1e-9)
}

func TestRunManualReviewFlow(t *testing.T) {
	dsA, dsB := testNetwork(t)

	c, err := New(
		WithDatasets(dsA, dsB),
		WithCheckMode(conflation.ManualOnly),
		WithLogger(&logging.Nop),
	)
	require.NoError(t, err)

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Pending, 2)

	require.NoError(t, c.Resolve("A:a2", conflation.VerdictAccepted))
	require.NoError(t, c.Resolve("B:b2", conflation.VerdictRejected))

	final, err := c.Result()
	require.NoError(t, err)
	assert.Empty(t, final.Pending)
	require.Len(t, final.Rejected, 1)
	assert.Equal(t, "B:b2", final.Rejected[0].ID)
}

func TestRunFiresHooks(t *testing.T) {
	dsA, dsB := testNetwork(t)

	c, err := New(
		WithDatasets(dsA, dsB),
		WithCheckMode(conflation.ManualOnly),
		WithLogger(&logging.Nop),
	)
	require.NoError(t, err)

	var accepted, rejected, pending int
	c.OnFeatureAccepted(func(*conflation.Decision) { accepted++ })
	c.OnFeatureRejected(func(*conflation.Decision) { rejected++ })
	c.OnPendingReview(func(*conflation.Decision) { pending++ })

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 2, pending)

	require.NoError(t, c.Resolve("A:a2", conflation.VerdictRejected))
	assert.Equal(t, 1, rejected)
}

func TestRunIsDeterministic(t *testing.T) {
	report := func(workers int) []byte {
		dsA, dsB := testNetwork(t)
		c, err := New(
			WithDatasets(dsA, dsB),
			WithWorkers(workers),
			WithLogger(&logging.Nop),
		)
		require.NoError(t, err)

		result, err := c.Run(context.Background())
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, result.WriteReport(&buf))
		var out bytes.Buffer
		require.NoError(t, result.WriteGeoJSON(&out))
		return append(buf.Bytes(), out.Bytes()...)
	}

	first := report(1)
	for _, workers := range []int{2, 4, 8} {
		assert.Equal(t, first, report(workers))
	}
}
