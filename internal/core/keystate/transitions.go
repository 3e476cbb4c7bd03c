// Package keystate contains the pure per-key synchronization state machine.
// This is part of the Functional Core - no I/O, only pure functions.
package keystate

import "time"

// State represents the synchronization state of one base-relation key.
type State string

const (
	// StateAbsent means no base row (and no projection) exists for the key.
	StateAbsent State = "absent"
	// StatePending means a mutation is queued or being applied.
	StatePending State = "pending"
	// StateConsistent means the projection equals derive(current base row).
	StateConsistent State = "consistent"
	// StateFailed means retries were exhausted; the projection may be stale.
	StateFailed State = "failed"
)

// TransitionResult captures the outcome of a state transition.
type TransitionResult struct {
	NewState State
	// ResetAttempts is set when the transition clears the retry counter.
	ResetAttempts bool
}

// OnMutation applies the transition for a newly received mutation event.
// Any state moves to Pending; a fresh mutation wipes a prior failure's
// retry history because it changes the work to be done.
func OnMutation(s State) TransitionResult {
	return TransitionResult{NewState: StatePending, ResetAttempts: true}
}

// OnSynced applies the transition for a successful projection write.
func OnSynced(s State) TransitionResult {
	return TransitionResult{NewState: StateConsistent, ResetAttempts: true}
}

// OnRemoved applies the transition for a processed delete.
func OnRemoved(s State) TransitionResult {
	return TransitionResult{NewState: StateAbsent, ResetAttempts: true}
}

// OnFailure applies the transition for an exhausted retry budget.
func OnFailure(s State) TransitionResult {
	return TransitionResult{NewState: StateFailed}
}

// Backoff returns the delay before retry number attempt (1-based),
// doubling from base and capped at max.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
