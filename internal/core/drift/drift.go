// Package drift contains the pure comparison logic for detecting
// divergence between stored projections and freshly derived values.
// This is part of the Functional Core - no I/O, only pure functions.
package drift

import (
	"math"
	"time"
)

// Reason classifies why a key was reported as drifted.
type Reason string

const (
	// ReasonMismatch means the stored attributes differ from re-derivation.
	ReasonMismatch Reason = "mismatch"
	// ReasonMissing means the base row exists but no projection does.
	ReasonMissing Reason = "missing"
	// ReasonOrphan means a projection exists for a deleted base row.
	ReasonOrphan Reason = "orphan"
	// ReasonSyncFailed means the synchronizer exhausted its retry budget.
	ReasonSyncFailed Reason = "sync-failed"
)

// Record is one drift report entry. ID is assigned by the sink.
type Record struct {
	ID         string
	Key        string
	Reason     Reason
	Expected   map[string]float64
	Actual     map[string]float64
	Detail     string
	DetectedAt time.Time
}

// tolerance absorbs float round-trips through storage.
const tolerance = 1e-9

// Equal reports whether two derived attribute sets match within tolerance.
func Equal(expected, actual map[string]float64) bool {
	if len(expected) != len(actual) {
		return false
	}
	for col, want := range expected {
		got, ok := actual[col]
		if !ok || math.Abs(got-want) > tolerance {
			return false
		}
	}
	return true
}
