package conflate

import (
	"sync"

	"github.com/velomap/conflate/pkg/conflation"
)

// Hook function types for decision events.
type (
	// FeatureAcceptedHook is called when a feature reaches Accepted.
	FeatureAcceptedHook func(d *conflation.Decision)

	// FeatureRejectedHook is called when a feature reaches Rejected.
	FeatureRejectedHook func(d *conflation.Decision)

	// PendingReviewHook is called when a feature enters the
	// manual-review queue.
	PendingReviewHook func(d *conflation.Decision)
)

// hooks manages event callbacks for decision transitions.
type hooks struct {
	mu         sync.RWMutex
	onAccepted []FeatureAcceptedHook
	onRejected []FeatureRejectedHook
	onPending  []PendingReviewHook
}

// newHooks creates a new hooks instance.
func newHooks() *hooks {
	return &hooks{}
}

// onFeatureAccepted registers an accepted callback.
func (h *hooks) onFeatureAccepted(fn FeatureAcceptedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAccepted = append(h.onAccepted, fn)
}

// onFeatureRejected registers a rejected callback.
func (h *hooks) onFeatureRejected(fn FeatureRejectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRejected = append(h.onRejected, fn)
}

// onPendingReview registers a pending-review callback.
func (h *hooks) onPendingReview(fn PendingReviewHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPending = append(h.onPending, fn)
}

// fire dispatches the callbacks matching the decision's state.
func (h *hooks) fire(d *conflation.Decision) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch d.State {
	case conflation.StateAccepted:
		for _, fn := range h.onAccepted {
			fn(d)
		}
	case conflation.StateRejected:
		for _, fn := range h.onRejected {
			fn(d)
		}
	case conflation.StatePending:
		for _, fn := range h.onPending {
			fn(d)
		}
	}
}
