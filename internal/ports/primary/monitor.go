package primary

import (
	"context"

	"github.com/example/projector/internal/core/drift"
)

// MonitorService defines the primary port for consistency verification.
type MonitorService interface {
	// Sweep verifies a batch of keys: recomputes the derivation rule
	// against current base rows and compares with stored projections.
	Sweep(ctx context.Context, req SweepRequest) (*SweepResponse, error)

	// ListDrift returns recorded drift entries, newest first.
	ListDrift(ctx context.Context, limit int) ([]*drift.Record, error)
}

// SweepRequest bounds one verification batch. AfterKey resumes a prior
// sweep; Limit caps the number of keys examined (0 means the default).
type SweepRequest struct {
	AfterKey string
	Limit    int
}

// SweepResponse summarizes one verification batch.
type SweepResponse struct {
	Checked    int
	Drifted    []*drift.Record
	Healed     int
	NextCursor string
}
