package conflate

import (
	"context"

	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
	"github.com/velomap/conflate/pkg/logging"
)

// Run executes the full pipeline: segmentation of both datasets,
// directional matching A->B and B->A, reassembly, statistics, and the
// decision engine. Data flows strictly forward; only the manual-review
// queue outlives the call.
func (c *conflator) Run(ctx context.Context) (*conflation.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = logging.WithLogger(ctx, c.config.logger)
	log := logging.Ctx(ctx)

	log.Info().
		Int("features_a", c.datasetA.Len()).
		Int("features_b", c.datasetB.Len()).
		Float64("segment_length", c.config.SegmentLength).
		Msg("starting conflation run")

	segmentsA, degA := geomatch.SegmentDataset(c.datasetA, c.config.SegmentLength)
	segmentsB, degB := geomatch.SegmentDataset(c.datasetB, c.config.SegmentLength)
	c.diagnostics.DegenerateA = mergeIDs(c.diagnostics.DegenerateA, degA)
	c.diagnostics.DegenerateB = mergeIDs(c.diagnostics.DegenerateB, degB)
	c.diagnostics.DuplicateGeometries = append(
		c.datasetA.DuplicateGeometries(), c.datasetB.DuplicateGeometries()...)

	log.Debug().
		Int("segments_a", len(segmentsA)).
		Int("segments_b", len(segmentsB)).
		Msg("segmentation complete")

	indexA := geomatch.NewIndex(segmentsA)
	indexB := geomatch.NewIndex(segmentsB)

	matcher := geomatch.NewMatcher(c.config.matchConfig())

	resultAToB, err := matcher.Match(ctx, segmentsA, indexB, geomatch.DirectionAToB)
	if err != nil {
		return nil, err
	}
	resultBToA, err := matcher.Match(ctx, segmentsB, indexA, geomatch.DirectionBToA)
	if err != nil {
		return nil, err
	}

	matchesA := geomatch.Reassemble(resultAToB)
	matchesB := geomatch.Reassemble(resultBToA)

	statsAToB := geomatch.ComputeStats(geomatch.DirectionAToB, matchesA)
	statsBToA := geomatch.ComputeStats(geomatch.DirectionBToA, matchesB)

	log.Info().
		Float64("percent_a_to_b", statsAToB.Percent).
		Float64("percent_b_to_a", statsBToA.Percent).
		Msg("matching complete")

	engine, err := conflation.NewEngine(c.config.engineConfig())
	if err != nil {
		return nil, err
	}
	engine.Decide(matchesA, matchesB)
	c.engine = engine

	for _, d := range engine.Decisions() {
		c.hooks.fire(d)
	}

	c.result = conflation.NewResultBuilder().
		WithDecisions(engine.Decisions()).
		WithStats(statsAToB, statsBToA).
		WithDiagnostics(c.diagnostics).
		Build()

	log.Info().
		Int("accepted", len(c.result.Accepted)).
		Int("rejected", len(c.result.Rejected)).
		Int("pending", len(c.result.Pending)).
		Msg("conflation run complete")

	return c.result, nil
}

// mergeIDs combines two diagnostic ID lists without duplicates,
// preserving order of first appearance.
func mergeIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// LoadDatasets is a convenience for callers that want the inputs without
// running the pipeline, e.g. for validation.
func LoadDatasets(pathA, pathB string) (*features.Dataset, *features.Dataset, error) {
	a, _, err := features.LoadDataset(pathA, features.OriginA)
	if err != nil {
		return nil, nil, err
	}
	b, _, err := features.LoadDataset(pathB, features.OriginB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
