package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/projector/internal/ports/secondary"
)

// ViewStore implements secondary.ProjectionStore in indexed-view mode: a
// separate cluster_derived table keyed identically to the base relation
// and kept in primary-key order for point lookups and range scans. Each
// write is one SQLite statement, which the storage layer applies
// atomically; readers never observe a half-applied projection.
type ViewStore struct {
	db *sql.DB
}

// NewViewStore creates a new indexed-view projection store.
func NewViewStore(db *sql.DB) *ViewStore {
	return &ViewStore{db: db}
}

// Mode identifies the backing strategy.
func (s *ViewStore) Mode() string { return secondary.ModeIndexedView }

// Get returns the projection for a key.
func (s *ViewStore) Get(ctx context.Context, key string) (*secondary.DerivedRecord, error) {
	var (
		attrs    string
		version  uint64
		syncedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT attrs, version, last_synced_at FROM cluster_derived WHERE cluster_id = ?",
		key,
	).Scan(&attrs, &version, &syncedAt)

	if err == sql.ErrNoRows {
		return nil, secondary.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get view projection %s: %w", key, err)
	}

	decoded, err := decodeAttrs(attrs)
	if err != nil {
		return nil, err
	}

	record := &secondary.DerivedRecord{Key: key, Attrs: decoded, Version: version}
	if syncedAt.Valid {
		record.LastSyncedAt = syncedAt.Time
	}
	return record, nil
}

// Upsert writes the projection row, discarding writes older than the
// stored version.
func (s *ViewStore) Upsert(ctx context.Context, record *secondary.DerivedRecord) error {
	encoded, err := encodeAttrs(record.Attrs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cluster_derived (cluster_id, attrs, version, last_synced_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cluster_id) DO UPDATE SET
		   attrs = excluded.attrs,
		   version = excluded.version,
		   last_synced_at = excluded.last_synced_at
		 WHERE excluded.version >= cluster_derived.version`,
		record.Key, encoded, record.Version, record.LastSyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert view projection %s: %w", record.Key, err)
	}
	return nil
}

// Remove deletes the projection row. Removing an absent row is a no-op so
// retried deletes stay idempotent.
func (s *ViewStore) Remove(ctx context.Context, key string, version uint64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cluster_derived WHERE cluster_id = ? AND version <= ?",
		key, version,
	)
	if err != nil {
		return fmt.Errorf("failed to remove view projection %s: %w", key, err)
	}
	return nil
}

// Version returns the persisted guard version, zero when no projection
// row exists. View mode deletes rows outright, so a removed key restarts
// its sequence from zero.
func (s *ViewStore) Version(ctx context.Context, key string) (uint64, error) {
	var version uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM cluster_derived WHERE cluster_id = ?", key,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read view projection version %s: %w", key, err)
	}
	return version, nil
}

// Scan returns projections in key order.
func (s *ViewStore) Scan(ctx context.Context, req secondary.ScanRequest) (*secondary.ScanPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_id, attrs, version, last_synced_at
		 FROM cluster_derived
		 WHERE cluster_id > ?
		 ORDER BY cluster_id LIMIT ?`,
		req.AfterKey, req.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan view projections: %w", err)
	}
	defer rows.Close()

	return collectScan(rows, req.Limit)
}

// Ensure ViewStore implements the interface
var _ secondary.ProjectionStore = (*ViewStore)(nil)
