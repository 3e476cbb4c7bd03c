package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for fresh installs. This is the single
// source of truth: tests must build their databases from GetSchemaSQL()
// instead of hardcoding CREATE TABLE statements, so that repository code
// referencing a column that does not exist here fails immediately.
//
// Keep this in sync with the migration list in migrations.go.
const SchemaSQL = `
-- Clusters: the base relation. Raw attributes are owned by external
-- writers (the importer); the engine only reads them. The derived_*
-- columns back the inline projection mode and live on the same row so an
-- inline upsert is a single atomic row update.
CREATE TABLE IF NOT EXISTS clusters (
	cluster_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	environment TEXT,
	region TEXT,
	owner TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	free_ghz REAL,
	cpu_usage REAL,
	memory_usage REAL,
	active_connections REAL,
	derived_attrs TEXT,
	derived_version INTEGER NOT NULL DEFAULT 0,
	last_synced_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexed-view projection: a separate read structure keyed identically to
-- the base relation, kept in primary-key order for point lookup and range
-- scans.
CREATE TABLE IF NOT EXISTS cluster_derived (
	cluster_id TEXT PRIMARY KEY,
	attrs TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	last_synced_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cluster_derived_synced ON cluster_derived(last_synced_at);

-- Summary-table projection: independent table with its own retention.
-- Removal soft-deletes so summary rows survive base deletion for audit.
CREATE TABLE IF NOT EXISTS cluster_summary (
	cluster_id TEXT PRIMARY KEY,
	attrs TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	last_synced_at DATETIME NOT NULL,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_cluster_summary_deleted ON cluster_summary(deleted_at);

-- Drift reports from the consistency monitor and the synchronizer's
-- retry-exhaustion path.
CREATE TABLE IF NOT EXISTS drift_reports (
	id TEXT PRIMARY KEY,
	cluster_id TEXT NOT NULL,
	reason TEXT NOT NULL CHECK(reason IN ('mismatch', 'missing', 'orphan', 'sync-failed')),
	expected TEXT,
	actual TEXT,
	detail TEXT,
	detected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drift_reports_key ON drift_reports(cluster_id);
CREATE INDEX IF NOT EXISTS idx_drift_reports_detected ON drift_reports(detected_at);
`

// InitSchema creates the database schema on a fresh database and runs any
// pending migrations on an existing one.
func InitSchema(d *sql.DB) error {
	var tableCount int
	err := d.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install: create the modern schema directly and mark all
		// migrations as applied so they never run against it.
		if _, err := d.Exec(SchemaSQL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if _, err := d.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := d.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(d)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
