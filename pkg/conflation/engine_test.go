package conflation

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
)

func feat(id string, origin features.Origin) *features.Feature {
	return &features.Feature{
		ID:       id,
		Origin:   origin,
		Class:    features.ClassCycleTrack,
		Geometry: orb.LineString{{0, 0}, {10, 0}},
	}
}

func outcome(f *features.Feature, matched, total float64, counterparts ...string) *geomatch.FeatureMatch {
	return &geomatch.FeatureMatch{
		Feature:       f,
		MatchedLength: matched,
		TotalLength:   total,
		Counterparts:  counterparts,
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestEngineNoCheckAcceptsAllDoubtful(t *testing.T) {
	e := newTestEngine(t, DefaultEngineConfig())

	e.Decide([]*geomatch.FeatureMatch{
		outcome(feat("a1", features.OriginA), 0, 10),
		outcome(feat("a2", features.OriginA), 0, 10),
		outcome(feat("a3", features.OriginA), 0, 10),
	}, nil)

	for _, d := range e.Decisions() {
		assert.Equal(t, StateAccepted, d.State)
		assert.Equal(t, PathAutoTrusted, d.Path)
		assert.True(t, d.Emitted)
	}
	assert.Empty(t, e.Pending())
}

func TestEngineMatchedAlwaysAccepts(t *testing.T) {
	e := newTestEngine(t, DefaultEngineConfig())

	e.Decide(
		[]*geomatch.FeatureMatch{outcome(feat("a1", features.OriginA), 10, 10, "b1")},
		[]*geomatch.FeatureMatch{outcome(feat("b1", features.OriginB), 10, 10, "a1")},
	)

	ds := e.Decisions()
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, StateAccepted, d.State)
		assert.Equal(t, PathMatched, d.Path)
	}
}

func TestEngineBaseModelPreference(t *testing.T) {
	decide := func(base features.Origin) map[string]*Decision {
		cfg := DefaultEngineConfig()
		cfg.BaseModel = base
		e := newTestEngine(t, cfg)
		e.Decide(
			[]*geomatch.FeatureMatch{outcome(feat("a1", features.OriginA), 10, 10, "b1")},
			[]*geomatch.FeatureMatch{outcome(feat("b1", features.OriginB), 10, 10, "a1")},
		)

		byID := make(map[string]*Decision)
		for _, d := range e.Decisions() {
			byID[d.FeatureID] = d
		}
		return byID
	}

	aBased := decide(features.OriginA)
	assert.True(t, aBased["a1"].Emitted)
	assert.False(t, aBased["b1"].Emitted)

	bBased := decide(features.OriginB)
	assert.False(t, bBased["a1"].Emitted)
	assert.True(t, bBased["b1"].Emitted)
}

func TestEngineAsymmetricMatchKeepsGeometry(t *testing.T) {
	// b1 matched against a1, but a1 itself fell short of the matched
	// fraction; there is no duplicate base geometry to defer to.
	e := newTestEngine(t, DefaultEngineConfig())

	e.Decide(
		[]*geomatch.FeatureMatch{outcome(feat("a1", features.OriginA), 2, 10, "b1")},
		[]*geomatch.FeatureMatch{outcome(feat("b1", features.OriginB), 10, 10, "a1")},
	)

	byID := make(map[string]*Decision)
	for _, d := range e.Decisions() {
		byID[d.FeatureID] = d
	}

	assert.Equal(t, PathMatched, byID["b1"].Path)
	assert.True(t, byID["b1"].Emitted)
	// a1 is doubtful and accepted through the NoCheck path.
	assert.Equal(t, PathAutoTrusted, byID["a1"].Path)
}

func TestEngineManualOnlyQueuesDoubtful(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	e.Decide([]*geomatch.FeatureMatch{outcome(feat("a1", features.OriginA), 0, 10)}, nil)

	pending := e.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "A:a1", pending[0].ID)
	assert.Equal(t, StatePending, pending[0].State)
}

func TestEngineAutoThenManual(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.CheckMode = AutoThenManual
	cfg.TrustRules = TrustRules{
		MinTimestamp:      timePtr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		MinVersion:        intPtr(3),
		MinAttributeCount: 2,
	}
	e := newTestEngine(t, cfg)

	// Recent and versioned, but only one non-empty attribute: the trust
	// classifier fails it into the manual queue.
	doubtful := feat("a1", features.OriginA)
	doubtful.Version = intPtr(5)
	doubtful.Timestamp = timePtr(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	doubtful.Attributes = map[string]string{"highway": "cycleway"}

	trusted := feat("a2", features.OriginA)
	trusted.Version = intPtr(4)
	trusted.Timestamp = timePtr(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	trusted.Attributes = map[string]string{"highway": "cycleway", "surface": "asphalt"}

	e.Decide([]*geomatch.FeatureMatch{
		outcome(doubtful, 0, 10),
		outcome(trusted, 0, 10),
	}, nil)

	pending := e.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "A:a1", pending[0].ID)
	assert.Contains(t, pending[0].Reason, "attributes")

	byID := make(map[string]*Decision)
	for _, d := range e.Decisions() {
		byID[d.FeatureID] = d
	}
	assert.Equal(t, StateAccepted, byID["a2"].State)
	assert.Equal(t, PathAutoTrusted, byID["a2"].Path)
}

func TestEngineResolveVerdicts(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	e.Decide([]*geomatch.FeatureMatch{
		outcome(feat("a1", features.OriginA), 0, 10),
		outcome(feat("a2", features.OriginA), 0, 10),
		outcome(feat("a3", features.OriginA), 0, 10),
	}, nil)

	require.NoError(t, e.Resolve("A:a1", VerdictAccepted))
	require.NoError(t, e.Resolve("A:a2", VerdictRejected))

	byID := make(map[string]*Decision)
	for _, d := range e.Decisions() {
		byID[d.FeatureID] = d
	}

	assert.Equal(t, StateAccepted, byID["a1"].State)
	assert.Equal(t, PathManuallyApproved, byID["a1"].Path)
	assert.True(t, byID["a1"].Emitted)

	assert.Equal(t, StateRejected, byID["a2"].State)
	assert.Equal(t, PathRejected, byID["a2"].Path)
	assert.False(t, byID["a2"].Emitted)

	// Unresolved features simply stay pending.
	require.Len(t, e.Pending(), 1)
	assert.Equal(t, "A:a3", e.Pending()[0].ID)
}

func TestEngineResolveErrors(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	e.Decide([]*geomatch.FeatureMatch{
		outcome(feat("a1", features.OriginA), 0, 10),
		outcome(feat("a2", features.OriginA), 10, 10, "b9"),
	}, nil)

	assert.True(t, errors.IsNotFound(e.Resolve("A:missing", VerdictAccepted)))
	assert.ErrorIs(t, e.Resolve("A:a2", VerdictAccepted), errors.ErrAlreadyResolved)

	require.NoError(t, e.Resolve("A:a1", VerdictAccepted))
	assert.ErrorIs(t, e.Resolve("A:a1", VerdictRejected), errors.ErrAlreadyResolved)

	assert.Error(t, e.Resolve("A:a1", Verdict("maybe")))
}

func TestEngineCompleteness(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	a := []*geomatch.FeatureMatch{
		outcome(feat("a1", features.OriginA), 10, 10, "b1"),
		outcome(feat("a2", features.OriginA), 0, 10),
	}
	b := []*geomatch.FeatureMatch{
		outcome(feat("b1", features.OriginB), 10, 10, "a1"),
		outcome(feat("b2", features.OriginB), 0, 10),
	}
	e.Decide(a, b)

	states := make(map[string]State)
	for _, d := range e.Decisions() {
		_, dup := states[d.ID]
		require.False(t, dup)
		states[d.ID] = d.State
	}

	require.Len(t, states, 4)
	for _, s := range states {
		assert.Contains(t, []State{StateAccepted, StateRejected, StatePending}, s)
	}
}

func TestEngineConfigValidate(t *testing.T) {
	bad := []Config{
		{BaseModel: "C", CheckMode: NoCheck, MinMatchedFraction: 0.5},
		{BaseModel: features.OriginA, CheckMode: "Sometimes", MinMatchedFraction: 0.5},
		{BaseModel: features.OriginA, CheckMode: NoCheck, MinMatchedFraction: 1.5},
		{BaseModel: features.OriginA, CheckMode: NoCheck, MinMatchedFraction: -0.1},
	}
	for _, cfg := range bad {
		assert.True(t, errors.IsInvalidConfig(cfg.Validate()))
	}

	assert.NoError(t, DefaultEngineConfig().Validate())
}

func TestParseCheckMode(t *testing.T) {
	for input, want := range map[string]CheckMode{
		"NoCheck":        NoCheck,
		"manual-only":    ManualOnly,
		"AutoThenManual": AutoThenManual,
		"auto":           AutoThenManual,
	} {
		got, err := ParseCheckMode(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCheckMode("sometimes")
	assert.True(t, errors.IsInvalidConfig(err))
}
