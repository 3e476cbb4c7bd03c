package secondary

import "context"

// BaseRecord is one base-relation row as stored. Props hold descriptive
// string attributes (name, environment, region, owner); Attrs hold the
// numeric stats that derivation rules read.
type BaseRecord struct {
	Key       string
	Props     map[string]string
	Attrs     map[string]float64
	Active    bool
	UpdatedAt string
}

// BaseRepository defines the secondary port for the base relation.
//
// The engine only reads base rows (monitor sweeps, conservative event
// fallback). The write methods exist for the importer, which acts as the
// external mutator of the base relation.
type BaseRepository interface {
	// Get retrieves a base row by key, or ErrNotFound.
	Get(ctx context.Context, key string) (*BaseRecord, error)

	// ListKeys returns base keys in order, resumable via afterKey.
	ListKeys(ctx context.Context, afterKey string, limit int) ([]string, error)

	// Upsert inserts or updates a base row. Returns true when the row was
	// newly inserted.
	Upsert(ctx context.Context, record *BaseRecord) (inserted bool, err error)

	// Delete removes a base row. Returns ErrNotFound if absent.
	Delete(ctx context.Context, key string) error
}
