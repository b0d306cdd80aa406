package conflation

import (
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/paulmach/orb/geojson"

	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/geomatch"
)

// Diagnostics collects the non-fatal oddities of a run. Nothing here
// stops the pipeline; everything is attached to the result instead of
// being silently swallowed.
type Diagnostics struct {
	// DegenerateA and DegenerateB list features dropped for degenerate
	// geometry, per dataset.
	DegenerateA []string `yaml:"degenerate_a,omitempty"`
	DegenerateB []string `yaml:"degenerate_b,omitempty"`

	// SkippedA and SkippedB list features skipped at load for non-line
	// geometry.
	SkippedA []string `yaml:"skipped_a,omitempty"`
	SkippedB []string `yaml:"skipped_b,omitempty"`

	// DuplicateGeometries lists groups of same-dataset features sharing
	// identical geometry, typically one feature classified into several
	// infrastructure classes. They pass through unchanged and overstate
	// length statistics.
	DuplicateGeometries [][]string `yaml:"duplicate_geometries,omitempty"`
}

// Empty reports whether the run produced no diagnostics.
func (d *Diagnostics) Empty() bool {
	return len(d.DegenerateA) == 0 && len(d.DegenerateB) == 0 &&
		len(d.SkippedA) == 0 && len(d.SkippedB) == 0 &&
		len(d.DuplicateGeometries) == 0
}

// Result is the terminal artifact of a run: the conflated output
// features, the directional completeness reports, and the audit logs.
type Result struct {
	// Accepted holds every accepted decision, emitted or not.
	Accepted []*Decision `yaml:"accepted"`

	// Rejected is the rejection log: dropped features with retained
	// provenance.
	Rejected []*Decision `yaml:"rejected"`

	// Pending lists features still awaiting a manual verdict. They are
	// never conflated unless a later run resolves them.
	Pending []*Decision `yaml:"pending"`

	// StatsAToB and StatsBToA are the directional match reports.
	StatsAToB *geomatch.DirectionStats `yaml:"stats_a_to_b"`
	StatsBToA *geomatch.DirectionStats `yaml:"stats_b_to_a"`

	// Diagnostics lists non-fatal drops and known overestimation
	// sources.
	Diagnostics Diagnostics `yaml:"diagnostics"`
}

// Emitted returns the accepted decisions whose geometry goes into the
// output collection.
func (r *Result) Emitted() []*Decision {
	var out []*Decision
	for _, d := range r.Accepted {
		if d.Emitted {
			out = append(out, d)
		}
	}
	return out
}

// WriteGeoJSON writes the conflated output as a GeoJSON
// FeatureCollection. Each feature carries its provenance: origin,
// acceptance path, source features, and matched fraction.
func (r *Result) WriteGeoJSON(w io.Writer) error {
	fc := geojson.NewFeatureCollection()
	for _, d := range r.Emitted() {
		gf := geojson.NewFeature(d.Feature.Geometry)
		gf.ID = d.ID
		gf.Properties = geojson.Properties{
			"feature_id":       d.FeatureID,
			"origin":           d.Origin.String(),
			"class":            d.Class.String(),
			"path":             string(d.Path),
			"matched_fraction": d.MatchedFraction,
		}
		if len(d.DerivedFrom) > 0 {
			gf.Properties["derived_from"] = strings.Join(d.DerivedFrom, ",")
		}
		for k, v := range d.Feature.Attributes {
			if _, taken := gf.Properties[k]; !taken {
				gf.Properties[k] = v
			}
		}
		fc.Append(gf)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.NewParseError("geojson", "", "marshaling conflated output", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.WrapIO("write", "geojson", err)
	}
	return nil
}

// WriteReport writes the match statistics, audit logs, and diagnostics as
// a YAML document.
func (r *Result) WriteReport(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.NewParseError("yaml", "", "marshaling report", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.WrapIO("write", "report", err)
	}
	return nil
}

// ResultBuilder assembles a Result from the pipeline's pieces.
type ResultBuilder struct {
	result *Result
}

// NewResultBuilder creates an empty builder.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{result: &Result{}}
}

// WithDecisions partitions the engine's decisions into the accepted,
// rejected, and pending logs, sorted by decision ID.
func (b *ResultBuilder) WithDecisions(decisions []*Decision) *ResultBuilder {
	for _, d := range decisions {
		switch d.State {
		case StateAccepted:
			b.result.Accepted = append(b.result.Accepted, d)
		case StateRejected:
			b.result.Rejected = append(b.result.Rejected, d)
		case StatePending:
			b.result.Pending = append(b.result.Pending, d)
		}
	}
	sortDecisions(b.result.Accepted)
	sortDecisions(b.result.Rejected)
	sortDecisions(b.result.Pending)
	return b
}

// WithStats attaches the directional match reports.
func (b *ResultBuilder) WithStats(aToB, bToA *geomatch.DirectionStats) *ResultBuilder {
	b.result.StatsAToB = aToB
	b.result.StatsBToA = bToA
	return b
}

// WithDiagnostics attaches the run diagnostics.
func (b *ResultBuilder) WithDiagnostics(d Diagnostics) *ResultBuilder {
	b.result.Diagnostics = d
	return b
}

// Build returns the assembled result.
func (b *ResultBuilder) Build() *Result {
	return b.result
}
