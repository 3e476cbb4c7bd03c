package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/projector/internal/ports/secondary"
)

// InlineStore implements secondary.ProjectionStore in inline mode: the
// derived attributes live on the clusters base row itself, so a
// projection write is a single atomic row update.
type InlineStore struct {
	db *sql.DB
}

// NewInlineStore creates a new inline-mode projection store.
func NewInlineStore(db *sql.DB) *InlineStore {
	return &InlineStore{db: db}
}

// Mode identifies the backing strategy.
func (s *InlineStore) Mode() string { return secondary.ModeInline }

// Get returns the projection for a key. A base row whose derived columns
// were never populated (or were cleared) counts as absent.
func (s *InlineStore) Get(ctx context.Context, key string) (*secondary.DerivedRecord, error) {
	var (
		attrs    sql.NullString
		version  uint64
		syncedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT derived_attrs, derived_version, last_synced_at FROM clusters WHERE cluster_id = ?",
		key,
	).Scan(&attrs, &version, &syncedAt)

	if err == sql.ErrNoRows {
		return nil, secondary.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inline projection %s: %w", key, err)
	}
	if !attrs.Valid {
		return nil, secondary.ErrNotFound
	}

	decoded, err := decodeAttrs(attrs.String)
	if err != nil {
		return nil, err
	}

	record := &secondary.DerivedRecord{Key: key, Attrs: decoded, Version: version}
	if syncedAt.Valid {
		record.LastSyncedAt = syncedAt.Time
	}
	return record, nil
}

// Upsert writes derived attributes onto the base row. Writes carrying a
// version older than the stored one are discarded. A missing base row is
// an error: inline mode has no other place to put the projection, so the
// caller must treat the write as failed rather than silently dropped.
func (s *InlineStore) Upsert(ctx context.Context, record *secondary.DerivedRecord) error {
	encoded, err := encodeAttrs(record.Attrs)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE clusters
		 SET derived_attrs = ?, derived_version = ?, last_synced_at = ?
		 WHERE cluster_id = ? AND derived_version <= ?`,
		encoded, record.Version, record.LastSyncedAt, record.Key, record.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert inline projection %s: %w", record.Key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to upsert inline projection %s: %w", record.Key, err)
	}
	if rows == 0 {
		// Either the version guard discarded a stale write (fine) or the
		// base row does not exist (not fine).
		var stored uint64
		err := s.db.QueryRowContext(ctx,
			"SELECT derived_version FROM clusters WHERE cluster_id = ?", record.Key,
		).Scan(&stored)
		if err == sql.ErrNoRows {
			return fmt.Errorf("failed to upsert inline projection %s: base row %w", record.Key, secondary.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert inline projection %s: %w", record.Key, err)
		}
	}
	return nil
}

// Remove clears the derived columns. The version still advances so a
// superseded upsert retried later cannot resurrect the cleared value.
func (s *InlineStore) Remove(ctx context.Context, key string, version uint64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clusters
		 SET derived_attrs = NULL, derived_version = ?, last_synced_at = NULL
		 WHERE cluster_id = ? AND derived_version <= ?`,
		version, key, version,
	)
	if err != nil {
		return fmt.Errorf("failed to remove inline projection %s: %w", key, err)
	}
	return nil
}

// Version returns the persisted guard version, including rows whose
// derived columns were cleared by Remove. A missing base row is zero.
func (s *InlineStore) Version(ctx context.Context, key string) (uint64, error) {
	var version uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT derived_version FROM clusters WHERE cluster_id = ?", key,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read inline projection version %s: %w", key, err)
	}
	return version, nil
}

// Scan returns projections in key order.
func (s *InlineStore) Scan(ctx context.Context, req secondary.ScanRequest) (*secondary.ScanPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_id, derived_attrs, derived_version, last_synced_at
		 FROM clusters
		 WHERE derived_attrs IS NOT NULL AND cluster_id > ?
		 ORDER BY cluster_id LIMIT ?`,
		req.AfterKey, req.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inline projections: %w", err)
	}
	defer rows.Close()

	return collectScan(rows, req.Limit)
}

// Ensure InlineStore implements the interface
var _ secondary.ProjectionStore = (*InlineStore)(nil)
