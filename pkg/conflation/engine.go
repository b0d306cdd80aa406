package conflation

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
	"github.com/velomap/conflate/pkg/geomatch"
)

// State is a feature's position in the decision state machine.
type State string

// Decision states. Accepted and Rejected are terminal;
// PendingManualReview suspends the feature until a verdict arrives.
const (
	StateMatched  State = "Matched"
	StateDoubtful State = "Doubtful"
	StateAccepted State = "Accepted"
	StateRejected State = "Rejected"
	StatePending  State = "PendingManualReview"
)

// Path records how a feature reached its terminal state.
type Path string

// Acceptance paths, carried as provenance on output features.
const (
	PathMatched          Path = "matched"
	PathAutoTrusted      Path = "auto-trusted"
	PathManuallyApproved Path = "manually-approved"
	PathRejected         Path = "rejected"
)

// CheckMode selects how doubtful features are handled.
type CheckMode string

// The doubtful-feature check modes.
const (
	NoCheck        CheckMode = "NoCheck"
	ManualOnly     CheckMode = "ManualOnly"
	AutoThenManual CheckMode = "AutoThenManual"
)

// ParseCheckMode parses a check mode name, case-insensitively.
func ParseCheckMode(s string) (CheckMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nocheck", "no-check", "none":
		return NoCheck, nil
	case "manualonly", "manual-only", "manual":
		return ManualOnly, nil
	case "autothenmanual", "auto-then-manual", "auto":
		return AutoThenManual, nil
	}
	return "", errors.NewConfigError("check_mode", s, "must be NoCheck, ManualOnly, or AutoThenManual")
}

// Config is the decision engine policy.
type Config struct {
	// BaseModel selects which dataset's geometry is kept when both sides
	// of a match are accepted.
	BaseModel features.Origin

	// CheckMode selects the doubtful-feature procedure.
	CheckMode CheckMode

	// TrustRules apply when CheckMode is AutoThenManual.
	TrustRules TrustRules

	// MinMatchedFraction is the matched-length share above which a
	// feature counts as matched.
	MinMatchedFraction float64
}

// DefaultEngineConfig returns the default decision policy: A-based,
// no doubtful check, features matched at half their length or more.
func DefaultEngineConfig() Config {
	return Config{
		BaseModel:          features.OriginA,
		CheckMode:          NoCheck,
		MinMatchedFraction: constants.DefaultMinMatchedFraction,
	}
}

// Validate checks the policy parameters.
func (c Config) Validate() error {
	if !c.BaseModel.Valid() {
		return errors.NewConfigError("base_model", string(c.BaseModel), "must be A or B")
	}
	switch c.CheckMode {
	case NoCheck, ManualOnly, AutoThenManual:
	default:
		return errors.NewConfigError("check_mode", string(c.CheckMode), "must be NoCheck, ManualOnly, or AutoThenManual")
	}
	if c.MinMatchedFraction < 0 || c.MinMatchedFraction > 1 {
		return errors.NewConfigError("min_matched_fraction", c.MinMatchedFraction, "must be within [0, 1]")
	}
	return nil
}

// Decision is one feature's terminal record: its state, the path that led
// there, and the provenance needed to assemble and audit the output.
type Decision struct {
	// ID is the origin-qualified decision key.
	ID string `yaml:"id"`

	// FeatureID and Origin identify the input feature.
	FeatureID string          `yaml:"feature_id"`
	Origin    features.Origin `yaml:"origin"`
	Class     features.Class  `yaml:"class"`

	// State is the feature's current state.
	State State `yaml:"state"`

	// Path is how the feature reached a terminal state.
	Path Path `yaml:"path,omitempty"`

	// Emitted marks whether the feature's geometry goes into the output.
	// A matched feature on the non-base side with a matched base
	// counterpart is accepted but not emitted, avoiding duplicate
	// geometry.
	Emitted bool `yaml:"emitted"`

	// DerivedFrom lists the opposite-dataset features the match derives
	// from.
	DerivedFrom []string `yaml:"derived_from,omitempty"`

	// MatchedFraction is the feature's matched-length share.
	MatchedFraction float64 `yaml:"matched_fraction"`

	// Reason explains doubtful outcomes (trust failures, verdicts).
	Reason string `yaml:"reason,omitempty"`

	// Feature is the underlying input feature.
	Feature *features.Feature `yaml:"-"`
}

// Terminal reports whether the decision reached Accepted or Rejected.
func (d *Decision) Terminal() bool {
	return d.State == StateAccepted || d.State == StateRejected
}

// DecisionID builds the origin-qualified key for a feature.
func DecisionID(origin features.Origin, featureID string) string {
	return fmt.Sprintf("%s:%s", origin, featureID)
}

// Engine is the conflation decision state machine. Features advance
// independently; the manual-review transition is the only suspension
// point, modeled as a pull-based queue that never blocks.
type Engine struct {
	cfg Config

	mu        sync.RWMutex
	decisions map[string]*Decision
	order     []string
}

// NewEngine creates a decision engine with a validated policy.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		decisions: make(map[string]*Decision),
	}, nil
}

// Decide runs the state machine over both directions' feature-level match
// outcomes. Every input feature ends in exactly one of Accepted,
// Rejected, or PendingManualReview.
func (e *Engine) Decide(aMatches, bMatches []*geomatch.FeatureMatch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	matched := map[features.Origin]map[string]bool{
		features.OriginA: matchedSet(aMatches, e.cfg.MinMatchedFraction),
		features.OriginB: matchedSet(bMatches, e.cfg.MinMatchedFraction),
	}

	for _, side := range [][]*geomatch.FeatureMatch{aMatches, bMatches} {
		for _, fm := range side {
			e.decide(fm, matched)
		}
	}
}

// decide advances a single feature to its post-matching state.
func (e *Engine) decide(fm *geomatch.FeatureMatch, matched map[features.Origin]map[string]bool) {
	f := fm.Feature
	d := &Decision{
		ID:              DecisionID(f.Origin, f.ID),
		FeatureID:       f.ID,
		Origin:          f.Origin,
		Class:           f.Class,
		MatchedFraction: fm.Fraction(),
		DerivedFrom:     fm.Counterparts,
		Feature:         f,
	}
	e.decisions[d.ID] = d
	e.order = append(e.order, d.ID)

	if matched[f.Origin][f.ID] {
		// Matched always accepts. The non-base side yields its geometry
		// when the base side confirmed the same infrastructure.
		d.State = StateAccepted
		d.Path = PathMatched
		d.Emitted = f.Origin == e.cfg.BaseModel || !anyMatched(fm.Counterparts, matched[f.Origin.Opposite()])
		return
	}

	d.State = StateDoubtful
	switch e.cfg.CheckMode {
	case NoCheck:
		d.State = StateAccepted
		d.Path = PathAutoTrusted
		d.Emitted = true
	case ManualOnly:
		d.State = StatePending
		d.Reason = "manual check required"
	case AutoThenManual:
		if failures := e.cfg.TrustRules.Failures(f); len(failures) > 0 {
			d.State = StatePending
			d.Reason = strings.Join(failures, "; ")
		} else {
			d.State = StateAccepted
			d.Path = PathAutoTrusted
			d.Emitted = true
		}
	}
}

// Pending returns the features awaiting a manual verdict, in decision
// order. The caller drains and resolves them asynchronously; unresolved
// features simply stay pending.
func (e *Engine) Pending() []*Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*Decision
	for _, id := range e.order {
		if d := e.decisions[id]; d.State == StatePending {
			out = append(out, d)
		}
	}
	return out
}

// Resolve applies a manual verdict to a pending feature.
func (e *Engine) Resolve(id string, verdict Verdict) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.decisions[id]
	if !ok {
		return errors.NewNotFoundError("decision", id)
	}
	if d.State != StatePending {
		if d.Terminal() {
			return fmt.Errorf("%w: %s already %s", errors.ErrAlreadyResolved, id, d.State)
		}
		return fmt.Errorf("%w: %s is %s", errors.ErrNotPending, id, d.State)
	}

	switch verdict {
	case VerdictAccepted:
		d.State = StateAccepted
		d.Path = PathManuallyApproved
		d.Emitted = true
	case VerdictRejected:
		d.State = StateRejected
		d.Path = PathRejected
	default:
		return fmt.Errorf("%w: verdict %q", errors.ErrInvalidInput, verdict)
	}
	return nil
}

// Decisions returns every decision in decision order.
func (e *Engine) Decisions() []*Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Decision, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.decisions[id])
	}
	return out
}

// matchedSet returns the IDs of features whose matched-length fraction
// reaches the threshold.
func matchedSet(matches []*geomatch.FeatureMatch, minFraction float64) map[string]bool {
	set := make(map[string]bool, len(matches))
	for _, fm := range matches {
		if fm.Matched(minFraction) {
			set[fm.Feature.ID] = true
		}
	}
	return set
}

// anyMatched reports whether any of the IDs is in the matched set.
func anyMatched(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

// sortDecisions orders decisions by ID for deterministic reports.
func sortDecisions(ds []*Decision) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}
