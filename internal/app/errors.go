// Package app implements the engine's primary ports: the synchronizer,
// the consistency monitor, the read side, and the importer.
package app

import (
	"errors"
	"fmt"
)

// ErrOrderingViolation signals that a key's events were observed out of
// sequence. Per-key serialization makes this unreachable; if it ever
// fires it is an invariant breach to investigate, never to auto-correct.
var ErrOrderingViolation = errors.New("per-key ordering violation")

// ErrClosed is returned by Apply after the synchronizer has shut down.
var ErrClosed = errors.New("synchronizer is closed")

// SyncFailedError reports that a key's mutation could not be applied
// within the retry budget. The prior projection, if any, is retained.
type SyncFailedError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *SyncFailedError) Error() string {
	return fmt.Sprintf("sync failed for %s after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *SyncFailedError) Unwrap() error { return e.Err }
