package geomatch

import (
	"sort"

	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/features"
)

// FeatureMatch is the feature-level fold of one direction's segment
// outcomes: how much of the feature's length found a counterpart, and
// which opposite-dataset features supplied the counterparts. Partial
// matches are common, so features carry a matched fraction rather than a
// binary flag.
type FeatureMatch struct {
	// Feature is the owning feature.
	Feature *features.Feature

	// MatchedLength is the summed length of the feature's matched
	// segments.
	MatchedLength float64

	// TotalLength is the summed length of all the feature's segments.
	TotalLength float64

	// SegmentsMatched and SegmentsTotal count the feature's segments by
	// outcome.
	SegmentsMatched int
	SegmentsTotal   int

	// Counterparts lists the distinct opposite-dataset feature IDs the
	// matched segments paired with, sorted.
	Counterparts []string
}

// Fraction returns the matched share of the feature's length, in [0, 1].
func (fm *FeatureMatch) Fraction() float64 {
	if fm.TotalLength <= constants.LengthEpsilon {
		return 0
	}
	return fm.MatchedLength / fm.TotalLength
}

// Matched reports whether the feature counts as matched under the given
// minimum matched-length fraction.
func (fm *FeatureMatch) Matched(minFraction float64) bool {
	return fm.Fraction() >= minFraction
}

// MatchedInfraLength returns the matched share of the feature's
// infrastructure length, counting two-way geometries double.
func (fm *FeatureMatch) MatchedInfraLength() float64 {
	return fm.Fraction() * fm.Feature.InfraLength()
}

// Reassemble regroups one direction's segment outcomes under their owning
// features, restoring feature order. Every query feature appears exactly
// once in the output, sorted by feature ID.
func Reassemble(result *MatchResult) []*FeatureMatch {
	byFeature := make(map[string]*FeatureMatch)

	get := func(f *features.Feature) *FeatureMatch {
		fm, ok := byFeature[f.ID]
		if !ok {
			fm = &FeatureMatch{Feature: f}
			byFeature[f.ID] = fm
		}
		return fm
	}

	for _, m := range result.Matched {
		fm := get(m.Query.Feature)
		fm.MatchedLength += m.Query.Length()
		fm.TotalLength += m.Query.Length()
		fm.SegmentsMatched++
		fm.SegmentsTotal++
		fm.Counterparts = appendUnique(fm.Counterparts, m.Candidate.Feature.ID)
	}
	for _, s := range result.Unmatched {
		fm := get(s.Feature)
		fm.TotalLength += s.Length()
		fm.SegmentsTotal++
	}

	out := make([]*FeatureMatch, 0, len(byFeature))
	for _, fm := range byFeature {
		sort.Strings(fm.Counterparts)
		out = append(out, fm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feature.ID < out[j].Feature.ID })
	return out
}

// appendUnique adds id to the slice unless already present.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
