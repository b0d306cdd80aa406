package geomatch

import (
	"math"
	"sort"

	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/features"
)

// ClassStats is the matched infrastructure length of one infrastructure
// class in one direction.
type ClassStats struct {
	Class         features.Class `yaml:"class"`
	Title         string         `yaml:"title"`
	MatchedLength float64        `yaml:"matched_length"`
	TotalLength   float64        `yaml:"total_length"`
	Percent       float64        `yaml:"percent"`
}

// DirectionStats is the directional completeness report: how much of one
// dataset's infrastructure found a counterpart in the other. Lengths are
// infrastructure lengths, counting two-way geometries double; percentages
// are rounded to 0.1.
type DirectionStats struct {
	Direction     Direction    `yaml:"direction"`
	Features      int          `yaml:"features"`
	MatchedLength float64      `yaml:"matched_length"`
	TotalLength   float64      `yaml:"total_length"`
	Percent       float64      `yaml:"percent"`
	PerClass      []ClassStats `yaml:"per_class"`
}

// ComputeStats aggregates feature-level match outcomes into the
// directional report, overall and per infrastructure class.
func ComputeStats(dir Direction, matches []*FeatureMatch) *DirectionStats {
	stats := &DirectionStats{
		Direction: dir,
		Features:  len(matches),
	}

	perClass := make(map[features.Class]*ClassStats)
	for _, fm := range matches {
		matched := fm.MatchedInfraLength()
		total := fm.Feature.InfraLength()

		stats.MatchedLength += matched
		stats.TotalLength += total

		class := fm.Feature.Class
		cs, ok := perClass[class]
		if !ok {
			cs = &ClassStats{Class: class, Title: class.Title()}
			perClass[class] = cs
		}
		cs.MatchedLength += matched
		cs.TotalLength += total
	}

	stats.Percent = matchPercent(stats.MatchedLength, stats.TotalLength)

	classes := make([]features.Class, 0, len(perClass))
	for c := range perClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	for _, c := range classes {
		cs := perClass[c]
		cs.Percent = matchPercent(cs.MatchedLength, cs.TotalLength)
		stats.PerClass = append(stats.PerClass, *cs)
	}

	return stats
}

// matchPercent returns the matched proportion as a percentage rounded to
// one decimal.
func matchPercent(matched, total float64) float64 {
	if total <= constants.LengthEpsilon {
		return 0
	}
	return math.Round(matched/total*1000) / 10
}
