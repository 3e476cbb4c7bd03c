package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_base_and_projection_tables",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_drift_reports_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_summary_soft_delete",
		Up:      migrationV3,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(d *sql.DB) error {
	// Ensure schema_version table exists
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := migration.Up(d); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := d.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the base relation and both separate projection tables.
func migrationV1(d *sql.DB) error {
	_, err := d.Exec(`
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
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create clusters: %w", err)
	}

	_, err = d.Exec(`
		CREATE TABLE IF NOT EXISTS cluster_derived (
			cluster_id TEXT PRIMARY KEY,
			attrs TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			last_synced_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cluster_derived: %w", err)
	}
	if _, err := d.Exec("CREATE INDEX IF NOT EXISTS idx_cluster_derived_synced ON cluster_derived(last_synced_at)"); err != nil {
		return fmt.Errorf("failed to index cluster_derived: %w", err)
	}

	_, err = d.Exec(`
		CREATE TABLE IF NOT EXISTS cluster_summary (
			cluster_id TEXT PRIMARY KEY,
			attrs TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			last_synced_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cluster_summary: %w", err)
	}

	return nil
}

// migrationV2 adds the drift_reports table.
func migrationV2(d *sql.DB) error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS drift_reports (
			id TEXT PRIMARY KEY,
			cluster_id TEXT NOT NULL,
			reason TEXT NOT NULL CHECK(reason IN ('mismatch', 'missing', 'orphan', 'sync-failed')),
			expected TEXT,
			actual TEXT,
			detail TEXT,
			detected_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create drift_reports: %w", err)
	}
	if _, err := d.Exec("CREATE INDEX IF NOT EXISTS idx_drift_reports_key ON drift_reports(cluster_id)"); err != nil {
		return fmt.Errorf("failed to index drift_reports by key: %w", err)
	}
	if _, err := d.Exec("CREATE INDEX IF NOT EXISTS idx_drift_reports_detected ON drift_reports(detected_at)"); err != nil {
		return fmt.Errorf("failed to index drift_reports by time: %w", err)
	}
	return nil
}

// migrationV3 converts summary removal to soft delete.
func migrationV3(d *sql.DB) error {
	_, err := d.Exec("ALTER TABLE cluster_summary ADD COLUMN deleted_at DATETIME")
	if err != nil {
		return fmt.Errorf("failed to add deleted_at to cluster_summary: %w", err)
	}
	if _, err := d.Exec("CREATE INDEX IF NOT EXISTS idx_cluster_summary_deleted ON cluster_summary(deleted_at)"); err != nil {
		return fmt.Errorf("failed to index cluster_summary soft deletes: %w", err)
	}
	return nil
}
