// Package conflate reconciles two independently collected line-network
// datasets describing the same real-world infrastructure into one merged
// dataset. It matches features at sub-feature granularity, classifies
// unconfirmed features against a trust policy, and merges the outcome
// under a configurable base-dataset preference, suspending doubtful
// features into a manual-review queue.
package conflate

import (
	"context"
	"fmt"
	"sync"

	"github.com/velomap/conflate/pkg/conflation"
	"github.com/velomap/conflate/pkg/errors"
	"github.com/velomap/conflate/pkg/features"
)

// Conflator runs the matching and conflation pipeline and exposes the
// manual-review queue.
type Conflator interface {
	// Run executes the full pipeline: segmentation, directional
	// matching, reassembly, and the decision engine. The returned result
	// reflects the state before any manual verdicts.
	Run(ctx context.Context) (*conflation.Result, error)

	// Pending returns the features awaiting a manual verdict. The call
	// never blocks; unresolved features stay pending.
	Pending() []*conflation.Decision

	// Resolve applies a manual verdict to a pending feature.
	Resolve(id string, verdict conflation.Verdict) error

	// Result rebuilds the result from the current decision states,
	// reflecting verdicts applied since Run.
	Result() (*conflation.Result, error)

	// OnFeatureAccepted registers a callback fired when a feature
	// reaches Accepted.
	OnFeatureAccepted(FeatureAcceptedHook)

	// OnFeatureRejected registers a callback fired when a feature
	// reaches Rejected.
	OnFeatureRejected(FeatureRejectedHook)

	// OnPendingReview registers a callback fired when a feature enters
	// the manual-review queue.
	OnPendingReview(PendingReviewHook)
}

// conflator is the internal implementation of the Conflator interface.
type conflator struct {
	mu     sync.RWMutex
	config *config
	hooks  *hooks

	datasetA *features.Dataset
	datasetB *features.Dataset

	engine      *conflation.Engine
	diagnostics conflation.Diagnostics
	result      *conflation.Result
}

// New creates a Conflator with the given options. The configuration is
// validated before any matching starts; any violation is fatal.
func New(opts ...Option) (Conflator, error) {
	c := &conflator{
		config: defaultConfig(),
		hooks:  newHooks(),
	}

	if err := c.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	if err := c.loadDatasets(); err != nil {
		return nil, err
	}

	return c, nil
}

// options applies each option in order.
func (c *conflator) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return err
		}
	}
	return nil
}

// loadDatasets resolves the configured inputs into in-memory datasets.
func (c *conflator) loadDatasets() error {
	c.datasetA = c.config.datasetA
	c.datasetB = c.config.datasetB

	if c.datasetA == nil && c.config.pathA != "" {
		ds, report, err := features.LoadDataset(c.config.pathA, features.OriginA)
		if err != nil {
			return err
		}
		c.datasetA = ds
		c.diagnostics.SkippedA = report.Skipped
		c.diagnostics.DegenerateA = report.Degenerate
	}
	if c.datasetB == nil && c.config.pathB != "" {
		ds, report, err := features.LoadDataset(c.config.pathB, features.OriginB)
		if err != nil {
			return err
		}
		c.datasetB = ds
		c.diagnostics.SkippedB = report.Skipped
		c.diagnostics.DegenerateB = report.Degenerate
	}

	if c.datasetA == nil || c.datasetB == nil {
		return fmt.Errorf("%w: both datasets are required", errors.ErrInvalidInput)
	}
	return nil
}

// Pending returns the current manual-review queue.
func (c *conflator) Pending() []*conflation.Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.engine == nil {
		return nil
	}
	return c.engine.Pending()
}

// Resolve applies a verdict and fires the matching hook.
func (c *conflator) Resolve(id string, verdict conflation.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return fmt.Errorf("%w: pipeline has not run", errors.ErrInvalidInput)
	}
	if err := c.engine.Resolve(id, verdict); err != nil {
		return err
	}

	for _, d := range c.engine.Decisions() {
		if d.ID == id {
			c.hooks.fire(d)
			break
		}
	}
	return nil
}

// Result rebuilds the result from the current decision states.
func (c *conflator) Result() (*conflation.Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.result == nil {
		return nil, fmt.Errorf("%w: pipeline has not run", errors.ErrInvalidInput)
	}

	return conflation.NewResultBuilder().
		WithDecisions(c.engine.Decisions()).
		WithStats(c.result.StatsAToB, c.result.StatsBToA).
		WithDiagnostics(c.diagnostics).
		Build(), nil
}

// OnFeatureAccepted registers a callback for accepted features.
func (c *conflator) OnFeatureAccepted(fn FeatureAcceptedHook) {
	c.hooks.onFeatureAccepted(fn)
}

// OnFeatureRejected registers a callback for rejected features.
func (c *conflator) OnFeatureRejected(fn FeatureRejectedHook) {
	c.hooks.onFeatureRejected(fn)
}

// OnPendingReview registers a callback for features entering the queue.
func (c *conflator) OnPendingReview(fn PendingReviewHook) {
	c.hooks.onPendingReview(fn)
}
