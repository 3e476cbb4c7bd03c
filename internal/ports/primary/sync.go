// Package primary defines the primary ports (driving adapters) for the
// engine. These are the interfaces through which the outside world drives
// the synchronization machinery.
package primary

import (
	"context"

	"github.com/example/projector/internal/core/keystate"
	"github.com/example/projector/internal/core/mutation"
)

// SyncService defines the primary port for the synchronizer. It consumes
// base-relation mutation events and keeps the projection store consistent.
type SyncService interface {
	// Apply submits one mutation event. Events for the same key are applied
	// in submission order; events for distinct keys may proceed
	// concurrently. With a zero staleness window Apply returns once the
	// projection reflects the event; otherwise it returns after enqueueing.
	Apply(ctx context.Context, event mutation.Event) error

	// Flush blocks until every queued event has been processed.
	Flush(ctx context.Context) error

	// KeyState reports the synchronization state of a key.
	KeyState(key string) keystate.State

	// StateCounts returns the number of tracked keys per state.
	StateCounts() map[keystate.State]int

	// Close flushes outstanding work and stops the per-key workers.
	Close(ctx context.Context) error
}
