// Package db manages the SQLite connection, schema, and migrations for
// the projection engine.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	conn        *sql.DB
	initialized bool
)

// DefaultPath returns the default database location (~/.projector/projector.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".projector", "projector.db"), nil
}

// Open opens a SQLite database at the given path with the engine's pragmas
// applied. It does not create the schema; callers that need a ready schema
// use GetDB or run InitSchema themselves.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Projection upserts arrive from concurrent per-key workers sharing
	// this pool; the busy timeout rides out writer contention.
	if _, err := d.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := d.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return d, nil
}

// GetDB returns the shared database connection, opening it at path (or the
// default location when path is empty) and initializing the schema on
// first use.
func GetDB(path string) (*sql.DB, error) {
	if conn != nil {
		return conn, nil
	}

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	conn = d

	if !initialized {
		initialized = true
		if err := InitSchema(conn); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return conn, nil
}

// Close closes the shared database connection.
func Close() error {
	if conn != nil {
		err := conn.Close()
		conn = nil
		initialized = false
		return err
	}
	return nil
}
