package conflation

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
)

func builtResult(t *testing.T) *Result {
	t.Helper()
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	e.Decide(
		[]*geomatch.FeatureMatch{
			outcome(feat("a1", features.OriginA), 10, 10, "b1"),
			outcome(feat("a2", features.OriginA), 0, 10),
		},
		[]*geomatch.FeatureMatch{
			outcome(feat("b1", features.OriginB), 10, 10, "a1"),
		},
	)
	require.NoError(t, e.Resolve("A:a2", VerdictRejected))

	return NewResultBuilder().
		WithDecisions(e.Decisions()).
		WithStats(
			&geomatch.DirectionStats{Direction: geomatch.DirectionAToB, Percent: 50},
			&geomatch.DirectionStats{Direction: geomatch.DirectionBToA, Percent: 100},
		).
		WithDiagnostics(Diagnostics{DegenerateA: []string{"a-bad"}}).
		Build()
}

func TestResultBuilderPartitionsDecisions(t *testing.T) {
	r := builtResult(t)

	require.Len(t, r.Accepted, 2)
	require.Len(t, r.Rejected, 1)
	assert.Empty(t, r.Pending)
	assert.Equal(t, "A:a2", r.Rejected[0].ID)

	// Accepted but non-emitted features stay out of the output geometry.
	emitted := r.Emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, "A:a1", emitted[0].ID)
	assert.False(t, r.Diagnostics.Empty())
}

func TestResultWriteGeoJSON(t *testing.T) {
	r := builtResult(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteGeoJSON(&buf))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	props := fc.Features[0].Properties
	assert.Equal(t, "a1", props.MustString("feature_id", ""))
	assert.Equal(t, "A", props.MustString("origin", ""))
	assert.Equal(t, "matched", props.MustString("path", ""))
	assert.Equal(t, "b1", props.MustString("derived_from", ""))
}

func TestResultWriteReport(t *testing.T) {
	r := builtResult(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteReport(&buf))

	report := buf.String()
	assert.Contains(t, report, "stats_a_to_b")
	assert.Contains(t, report, "rejected")
	assert.Contains(t, report, "degenerate_a")
	assert.Contains(t, report, "A:a2")
}
