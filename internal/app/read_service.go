package app

import (
	"context"
	"fmt"

	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

// defaultScanLimit bounds a scan page when the caller does not.
const defaultScanLimit = 50

// ReadServiceImpl implements the ReadService interface: the query side
// reads the projection store directly and never recomputes.
type ReadServiceImpl struct {
	store secondary.ProjectionStore
}

// NewReadService creates a read service over the projection store.
func NewReadService(store secondary.ProjectionStore) *ReadServiceImpl {
	return &ReadServiceImpl{store: store}
}

// GetDerived returns the projection for a key. Absence (including
// never-synchronized keys) is ErrNotFound from the store, passed through
// so callers can distinguish it from transport failures.
func (r *ReadServiceImpl) GetDerived(ctx context.Context, key string) (*primary.DerivedView, error) {
	rec, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &primary.DerivedView{
		Key:          rec.Key,
		Attrs:        rec.Attrs,
		LastSyncedAt: rec.LastSyncedAt,
	}, nil
}

// ScanDerived pages through projections in key order.
func (r *ReadServiceImpl) ScanDerived(ctx context.Context, req primary.ScanDerivedRequest) (*primary.ScanDerivedResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultScanLimit
	}

	page, err := r.store.Scan(ctx, secondary.ScanRequest{AfterKey: req.Cursor, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to scan projections: %w", err)
	}

	resp := &primary.ScanDerivedResponse{NextCursor: page.NextCursor}
	for _, rec := range page.Records {
		resp.Rows = append(resp.Rows, &primary.DerivedView{
			Key:          rec.Key,
			Attrs:        rec.Attrs,
			LastSyncedAt: rec.LastSyncedAt,
		})
	}
	return resp, nil
}

// Ensure ReadServiceImpl implements the interface
var _ primary.ReadService = (*ReadServiceImpl)(nil)
