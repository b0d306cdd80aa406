// Package conflation turns directional match results into the merged
// output dataset: trust classification of doubtful features, the decision
// state machine with its manual-review queue, and the final result with
// provenance and audit logs.
package conflation

import (
	"fmt"
	"time"

	"github.com/velomap/conflate/pkg/features"
)

// TrustRules is the attribute-based acceptance policy applied to doubtful
// features. All configured conditions are conjunctive. A nil condition is
// not part of the policy and always holds.
type TrustRules struct {
	// MinTimestamp requires the feature's last edit to be at or after
	// this time.
	MinTimestamp *time.Time `yaml:"min_timestamp"`

	// MinVersion requires the feature's edit count to be at least this.
	MinVersion *int `yaml:"min_version"`

	// MinAttributeCount requires at least this many non-empty
	// attributes. Zero disables the condition.
	MinAttributeCount int `yaml:"min_attribute_count"`
}

// Evaluate reports whether a feature passes every configured condition.
// A feature missing an attribute a condition needs fails that condition;
// it is not an error.
func (r TrustRules) Evaluate(f *features.Feature) bool {
	return len(r.Failures(f)) == 0
}

// Failures returns a description of each failed condition, for the audit
// log. An empty result means the feature passed.
func (r TrustRules) Failures(f *features.Feature) []string {
	var failed []string

	if r.MinTimestamp != nil {
		switch {
		case f.Timestamp == nil:
			failed = append(failed, "no timestamp")
		case f.Timestamp.Before(*r.MinTimestamp):
			failed = append(failed, fmt.Sprintf("timestamp %s before %s",
				f.Timestamp.Format(time.RFC3339), r.MinTimestamp.Format(time.RFC3339)))
		}
	}

	if r.MinVersion != nil {
		switch {
		case f.Version == nil:
			failed = append(failed, "no version")
		case *f.Version < *r.MinVersion:
			failed = append(failed, fmt.Sprintf("version %d below %d", *f.Version, *r.MinVersion))
		}
	}

	if r.MinAttributeCount > 0 {
		if n := f.AttributeCount(); n < r.MinAttributeCount {
			failed = append(failed, fmt.Sprintf("%d attributes below %d", n, r.MinAttributeCount))
		}
	}

	return failed
}
