package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/projector/internal/core/drift"
	"github.com/example/projector/internal/ports/secondary"
)

// DriftRepository implements secondary.DriftSink with SQLite.
type DriftRepository struct {
	db *sql.DB
}

// NewDriftRepository creates a new SQLite drift report sink.
func NewDriftRepository(db *sql.DB) *DriftRepository {
	return &DriftRepository{db: db}
}

// Report persists a drift record, assigning its ID.
func (r *DriftRepository) Report(ctx context.Context, record *drift.Record) error {
	expected, err := encodeAttrs(record.Expected)
	if err != nil {
		return err
	}
	actual, err := encodeAttrs(record.Actual)
	if err != nil {
		return err
	}

	record.ID = uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO drift_reports (id, cluster_id, reason, expected, actual, detail, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Key, string(record.Reason), expected, actual, record.Detail, record.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record drift for %s: %w", record.Key, err)
	}
	return nil
}

// List returns the most recent drift records, newest first.
func (r *DriftRepository) List(ctx context.Context, limit int) ([]*drift.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cluster_id, reason, expected, actual, detail, detected_at
		 FROM drift_reports
		 ORDER BY detected_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drift reports: %w", err)
	}
	defer rows.Close()

	var records []*drift.Record
	for rows.Next() {
		var (
			record           drift.Record
			reason           string
			expected, actual sql.NullString
			detail           sql.NullString
		)
		err := rows.Scan(&record.ID, &record.Key, &reason, &expected, &actual, &detail, &record.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drift report: %w", err)
		}

		record.Reason = drift.Reason(reason)
		record.Detail = detail.String
		if record.Expected, err = decodeAttrs(expected.String); err != nil {
			return nil, err
		}
		if record.Actual, err = decodeAttrs(actual.String); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Clear removes drift records for a key after its projection is healed.
func (r *DriftRepository) Clear(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM drift_reports WHERE cluster_id = ?", key); err != nil {
		return fmt.Errorf("failed to clear drift for %s: %w", key, err)
	}
	return nil
}

// Ensure DriftRepository implements the interface
var _ secondary.DriftSink = (*DriftRepository)(nil)
