package secondary

import (
	"context"

	"github.com/example/projector/internal/core/drift"
)

// DriftSink defines the secondary port for drift report delivery. The
// default sink persists records for later inspection; transports to
// external observability systems hang off the same interface.
type DriftSink interface {
	// Report records a drift entry. The sink assigns Record.ID.
	Report(ctx context.Context, record *drift.Record) error

	// List returns the most recent drift records, newest first.
	List(ctx context.Context, limit int) ([]*drift.Record, error)

	// Clear removes drift records for a key, used after self-healing.
	Clear(ctx context.Context, key string) error
}
