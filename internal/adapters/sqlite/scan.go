package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/example/projector/internal/ports/secondary"
)

// collectScan drains a projection query into a scan page. All three modes
// select the same column shape: key, attrs, version, last_synced_at.
// The cursor is the last key of a full page; a short page ends the scan.
func collectScan(rows *sql.Rows, limit int) (*secondary.ScanPage, error) {
	page := &secondary.ScanPage{}
	for rows.Next() {
		var (
			key      string
			attrs    sql.NullString
			version  uint64
			syncedAt sql.NullTime
		)
		if err := rows.Scan(&key, &attrs, &version, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan projection row: %w", err)
		}

		decoded, err := decodeAttrs(attrs.String)
		if err != nil {
			return nil, err
		}

		record := &secondary.DerivedRecord{Key: key, Attrs: decoded, Version: version}
		if syncedAt.Valid {
			record.LastSyncedAt = syncedAt.Time
		}
		page.Records = append(page.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projection scan failed: %w", err)
	}

	if limit > 0 && len(page.Records) == limit {
		page.NextCursor = page.Records[len(page.Records)-1].Key
	}
	return page, nil
}
