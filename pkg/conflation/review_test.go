package conflation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
)

func pendingEngine(t *testing.T, ids ...string) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig()
	cfg.CheckMode = ManualOnly
	e := newTestEngine(t, cfg)

	var matches []*geomatch.FeatureMatch
	for _, id := range ids {
		matches = append(matches, outcome(feat(id, features.OriginA), 0, 10))
	}
	e.Decide(matches, nil)
	return e
}

func TestParseVerdict(t *testing.T) {
	for input, want := range map[string]Verdict{
		"accepted": VerdictAccepted,
		"Accept":   VerdictAccepted,
		"y":        VerdictAccepted,
		"rejected": VerdictRejected,
		"no":       VerdictRejected,
	} {
		got, err := ParseVerdict(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseVerdict("maybe")
	assert.Error(t, err)
}

func TestReviewFileApply(t *testing.T) {
	e := pendingEngine(t, "a1", "a2", "a3")

	rf, err := ReadReviewFile(strings.NewReader(`
verdicts:
  "A:a1": accepted
  "A:a2": rejected
  "A:ghost": accepted
`))
	require.NoError(t, err)

	result, err := rf.Apply(e)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Resolved)
	assert.Equal(t, []string{"A:ghost"}, result.Skipped)

	require.Len(t, e.Pending(), 1)
	assert.Equal(t, "A:a3", e.Pending()[0].ID)
}

func TestReviewFileApplyRejectsBadVerdict(t *testing.T) {
	e := pendingEngine(t, "a1")

	rf := &ReviewFile{Verdicts: map[string]string{"A:a1": "perhaps"}}
	_, err := rf.Apply(e)
	assert.Error(t, err)

	// The queue is untouched on a malformed document.
	assert.Len(t, e.Pending(), 1)
}

func TestPendingTemplate(t *testing.T) {
	e := pendingEngine(t, "a2", "a1")

	out, err := PendingTemplate(e)
	require.NoError(t, err)

	rf, err := ReadReviewFile(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Len(t, rf.Verdicts, 2)
	assert.Contains(t, rf.Verdicts, "A:a1")
	assert.Contains(t, rf.Verdicts, "A:a2")
}

func TestReadReviewFileInvalid(t *testing.T) {
	_, err := ReadReviewFile(strings.NewReader("verdicts: [not a map"))
	assert.Error(t, err)
}
