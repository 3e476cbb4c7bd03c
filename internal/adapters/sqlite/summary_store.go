package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/projector/internal/ports/secondary"
)

// SummaryStore implements secondary.ProjectionStore in summary-table mode:
// a wholly separate cluster_summary table with its own indexing and
// retention. Removal soft-deletes so summary rows outlive base deletion
// for audit; reads and scans skip retired rows.
type SummaryStore struct {
	db *sql.DB
}

// NewSummaryStore creates a new summary-table projection store.
func NewSummaryStore(db *sql.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Mode identifies the backing strategy.
func (s *SummaryStore) Mode() string { return secondary.ModeSummaryTable }

// Get returns the live projection for a key; soft-deleted rows are absent.
func (s *SummaryStore) Get(ctx context.Context, key string) (*secondary.DerivedRecord, error) {
	var (
		attrs    string
		version  uint64
		syncedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT attrs, version, last_synced_at FROM cluster_summary WHERE cluster_id = ? AND deleted_at IS NULL",
		key,
	).Scan(&attrs, &version, &syncedAt)

	if err == sql.ErrNoRows {
		return nil, secondary.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary projection %s: %w", key, err)
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

// Upsert writes the summary row, reviving a soft-deleted row when the key
// reappears in the base relation.
func (s *SummaryStore) Upsert(ctx context.Context, record *secondary.DerivedRecord) error {
	encoded, err := encodeAttrs(record.Attrs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cluster_summary (cluster_id, attrs, version, last_synced_at, deleted_at)
		 VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT(cluster_id) DO UPDATE SET
		   attrs = excluded.attrs,
		   version = excluded.version,
		   last_synced_at = excluded.last_synced_at,
		   deleted_at = NULL
		 WHERE excluded.version >= cluster_summary.version`,
		record.Key, encoded, record.Version, record.LastSyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary projection %s: %w", record.Key, err)
	}
	return nil
}

// Remove soft-deletes the summary row, keeping it for audit.
func (s *SummaryStore) Remove(ctx context.Context, key string, version uint64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cluster_summary
		 SET deleted_at = ?, version = ?
		 WHERE cluster_id = ? AND version <= ?`,
		time.Now().UTC(), version, key, version,
	)
	if err != nil {
		return fmt.Errorf("failed to remove summary projection %s: %w", key, err)
	}
	return nil
}

// Version returns the persisted guard version, including soft-deleted
// rows, so a key that reappears after removal resumes past the version
// the tombstone carries.
func (s *SummaryStore) Version(ctx context.Context, key string) (uint64, error) {
	var version uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM cluster_summary WHERE cluster_id = ?", key,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read summary projection version %s: %w", key, err)
	}
	return version, nil
}

// Scan returns live projections in key order.
func (s *SummaryStore) Scan(ctx context.Context, req secondary.ScanRequest) (*secondary.ScanPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_id, attrs, version, last_synced_at
		 FROM cluster_summary
		 WHERE deleted_at IS NULL AND cluster_id > ?
		 ORDER BY cluster_id LIMIT ?`,
		req.AfterKey, req.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary projections: %w", err)
	}
	defer rows.Close()

	return collectScan(rows, req.Limit)
}

// Ensure SummaryStore implements the interface
var _ secondary.ProjectionStore = (*SummaryStore)(nil)
