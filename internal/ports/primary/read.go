package primary

import (
	"context"
	"time"
)

// ReadService defines the primary port for the query side. Reads go
// straight to the projection store and never fail due to synchronization
// errors; staleness is discoverable via LastSyncedAt and the drift report.
type ReadService interface {
	// GetDerived returns the projection for a key, or an absent response.
	GetDerived(ctx context.Context, key string) (*DerivedView, error)

	// ScanDerived pages through projections in key order.
	ScanDerived(ctx context.Context, req ScanDerivedRequest) (*ScanDerivedResponse, error)
}

// DerivedView is the external response shape for one projection.
type DerivedView struct {
	Key          string
	Attrs        map[string]float64
	LastSyncedAt time.Time
}

// ScanDerivedRequest pages a projection scan. Cursor resumes a prior scan.
type ScanDerivedRequest struct {
	Cursor string
	Limit  int
}

// ScanDerivedResponse is one page of projections.
type ScanDerivedResponse struct {
	Rows       []*DerivedView
	NextCursor string
}
