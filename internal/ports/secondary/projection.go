// Package secondary defines the secondary ports (driven adapters) for the
// engine. These are the interfaces through which the engine drives the
// backing storage layer.
package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no row exists for the key.
var ErrNotFound = errors.New("not found")

// Projection store modes. The mode selects which physical shape backs the
// derived data; all three implement the same ProjectionStore contract.
const (
	ModeInline       = "inline"
	ModeIndexedView  = "indexed-view"
	ModeSummaryTable = "summary-table"
)

// DerivedRecord is one materialized projection row.
type DerivedRecord struct {
	Key          string
	Attrs        map[string]float64
	Version      uint64
	LastSyncedAt time.Time
}

// ScanRequest pages through projections in key order. AfterKey is the
// cursor returned by a previous page; empty starts from the beginning.
type ScanRequest struct {
	AfterKey string
	Limit    int
}

// ScanPage is one page of a scan. NextCursor is empty when the scan is
// exhausted; otherwise passing it as AfterKey resumes the scan.
type ScanPage struct {
	Records    []*DerivedRecord
	NextCursor string
}

// ProjectionStore defines the secondary port for materialized derived data.
//
// Upsert and Remove carry the per-key version assigned by the synchronizer.
// Implementations must treat them as idempotent, version-guarded writes: a
// write whose version is lower than the stored one is discarded, so retries
// and superseded computations cannot regress the projection.
type ProjectionStore interface {
	// Get returns the projection for a key, or ErrNotFound.
	Get(ctx context.Context, key string) (*DerivedRecord, error)

	// Upsert writes derived attributes for a key.
	Upsert(ctx context.Context, record *DerivedRecord) error

	// Remove deletes (or, depending on mode, retires) the projection.
	Remove(ctx context.Context, key string, version uint64) error

	// Scan returns projections in key order, resumable via the cursor.
	Scan(ctx context.Context, req ScanRequest) (*ScanPage, error)

	// Version returns the persisted guard version for a key, zero when no
	// version has ever been written. Unlike Get it sees cleared and
	// soft-deleted rows, so a restarted synchronizer can resume the
	// sequence instead of issuing versions the guard already discards.
	Version(ctx context.Context, key string) (uint64, error)

	// Mode identifies the backing strategy (inline, indexed-view,
	// summary-table).
	Mode() string
}
