package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/projector/internal/ports/secondary"
)

// BaseRepository implements secondary.BaseRepository with SQLite.
type BaseRepository struct {
	db *sql.DB
}

// NewBaseRepository creates a new SQLite base relation repository.
func NewBaseRepository(db *sql.DB) *BaseRepository {
	return &BaseRepository{db: db}
}

// Get retrieves a base row by key.
func (r *BaseRepository) Get(ctx context.Context, key string) (*secondary.BaseRecord, error) {
	var (
		name, environment, owner, region sql.NullString
		freeGHz, cpuUsage                sql.NullFloat64
		memUsage, activeConns            sql.NullFloat64
		active                           bool
		updatedAt                        time.Time
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT name, environment, region, owner, is_active,
		        free_ghz, cpu_usage, memory_usage, active_connections, updated_at
		 FROM clusters WHERE cluster_id = ?`,
		key,
	).Scan(&name, &environment, &region, &owner, &active,
		&freeGHz, &cpuUsage, &memUsage, &activeConns, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, secondary.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster %s: %w", key, err)
	}

	record := &secondary.BaseRecord{
		Key:       key,
		Props:     map[string]string{},
		Attrs:     map[string]float64{},
		Active:    active,
		UpdatedAt: updatedAt.Format(time.RFC3339),
	}
	for col, v := range map[string]sql.NullString{
		"name": name, "environment": environment, "region": region, "owner": owner,
	} {
		if v.Valid {
			record.Props[col] = v.String
		}
	}
	for col, v := range map[string]sql.NullFloat64{
		"free_ghz": freeGHz, "cpu_usage": cpuUsage,
		"memory_usage": memUsage, "active_connections": activeConns,
	} {
		if v.Valid {
			record.Attrs[col] = v.Float64
		}
	}

	return record, nil
}

// ListKeys returns cluster keys in order, resuming after afterKey.
func (r *BaseRepository) ListKeys(ctx context.Context, afterKey string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT cluster_id FROM clusters WHERE cluster_id > ? ORDER BY cluster_id LIMIT ?",
		afterKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cluster key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Upsert inserts or updates a base row. The engine itself never calls
// this; it exists for the importer acting as the external base mutator.
func (r *BaseRepository) Upsert(ctx context.Context, record *secondary.BaseRecord) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clusters WHERE cluster_id = ?", record.Key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check cluster %s: %w", record.Key, err)
	}

	attr := func(col string) any {
		if v, ok := record.Attrs[col]; ok {
			return v
		}
		return nil
	}
	prop := func(col string) any {
		if v, ok := record.Props[col]; ok {
			return v
		}
		return nil
	}

	if exists == 0 {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO clusters
			   (cluster_id, name, environment, region, owner, is_active,
			    free_ghz, cpu_usage, memory_usage, active_connections)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Key, record.Props["name"], prop("environment"), prop("region"), prop("owner"),
			record.Active, attr("free_ghz"), attr("cpu_usage"), attr("memory_usage"), attr("active_connections"),
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert cluster %s: %w", record.Key, err)
		}
		return true, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE clusters SET
		   name = ?, environment = ?, region = ?, owner = ?, is_active = ?,
		   free_ghz = ?, cpu_usage = ?, memory_usage = ?, active_connections = ?,
		   updated_at = CURRENT_TIMESTAMP
		 WHERE cluster_id = ?`,
		record.Props["name"], prop("environment"), prop("region"), prop("owner"), record.Active,
		attr("free_ghz"), attr("cpu_usage"), attr("memory_usage"), attr("active_connections"),
		record.Key,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update cluster %s: %w", record.Key, err)
	}
	return false, nil
}

// Delete removes a base row.
func (r *BaseRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM clusters WHERE cluster_id = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", key, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return secondary.ErrNotFound
	}
	return nil
}

// Ensure BaseRepository implements the interface
var _ secondary.BaseRepository = (*BaseRepository)(nil)
