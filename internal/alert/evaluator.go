// Package alert implements the debounced threat state machine that
// turns per-cycle observations into a flicker-free alert signal.
//
// The evaluator is the single writer of the alert state; downstream
// consumers observe immutable snapshots and act on the edge booleans,
// never on the raw state, so every transition is seen exactly once.
package alert

import (
	"sync/atomic"
	"time"
)

// State is the debounced threat level.
type State int

const (
	// StateSafe means no threat condition has persisted long enough
	// to act on.
	StateSafe State = iota

	// StateSuspect is a reporting-only state: the trigger condition
	// is present but has not yet persisted for the required number of
	// cycles. It never short-circuits the debounce.
	StateSuspect

	// StateAlert means the trigger condition persisted and the
	// protective countermeasure should be active.
	StateAlert
)

// String returns the state name used in logs and exports.
func (s State) String() string {
	switch s {
	case StateSafe:
		return "safe"
	case StateSuspect:
		return "suspect"
	case StateAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// Config holds the hysteresis thresholds.
type Config struct {
	// MinFacesForAlert is the number of simultaneous faces that
	// counts as a raw trigger.
	MinFacesForAlert int

	// TriggerFramesRequired is how many consecutive trigger cycles
	// raise an alert.
	TriggerFramesRequired int

	// ClearFramesRequired is how many consecutive clear cycles end
	// an alert. Intentionally larger than the trigger threshold to
	// fail toward caution.
	ClearFramesRequired int
}

// Snapshot is the immutable per-cycle output of the evaluator.
type Snapshot struct {
	State            State
	JustEnteredAlert bool
	JustClearedAlert bool
	FaceCount        int
	AnyLookingAway   bool
	At               time.Time
}

// Evaluator owns the alert state for one session. Evaluate must be
// called from a single goroutine; Latest may be read from any.
type Evaluator struct {
	cfg Config

	alerting      bool
	triggerFrames int
	clearFrames   int

	latest atomic.Pointer[Snapshot]
}

// NewEvaluator creates an evaluator in the safe state.
func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{cfg: cfg}
	e.latest.Store(&Snapshot{State: StateSafe, At: time.Now()})
	return e
}

// Evaluate feeds one cycle's observations through the hysteresis
// machine and publishes the resulting snapshot.
func (e *Evaluator) Evaluate(faceCount int, anyLookingAway bool) Snapshot {
	rawTrigger := faceCount >= e.cfg.MinFacesForAlert || anyLookingAway

	snap := Snapshot{
		FaceCount:      faceCount,
		AnyLookingAway: anyLookingAway,
		At:             time.Now(),
	}

	if e.alerting {
		if rawTrigger {
			e.clearFrames = 0
			e.triggerFrames = 0
		} else {
			e.clearFrames++
			if e.clearFrames >= e.cfg.ClearFramesRequired {
				e.alerting = false
				e.clearFrames = 0
				e.triggerFrames = 0
				snap.JustClearedAlert = true
			}
		}
	} else {
		if rawTrigger {
			e.clearFrames = 0
			e.triggerFrames++
			if e.triggerFrames >= e.cfg.TriggerFramesRequired {
				e.alerting = true
				e.triggerFrames = 0
				e.clearFrames = 0
				snap.JustEnteredAlert = true
			}
		} else {
			e.triggerFrames = 0
		}
	}

	switch {
	case e.alerting:
		snap.State = StateAlert
	case e.triggerFrames > 0:
		snap.State = StateSuspect
	default:
		snap.State = StateSafe
	}

	e.latest.Store(&snap)
	return snap
}

// Latest returns the most recently published snapshot.
func (e *Evaluator) Latest() Snapshot {
	return *e.latest.Load()
}
