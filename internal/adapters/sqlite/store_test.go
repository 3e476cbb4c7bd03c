package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/projector/internal/adapters/sqlite"
	"github.com/example/projector/internal/db"
	"github.com/example/projector/internal/ports/secondary"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	d, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// A single connection keeps every statement on the same in-memory DB.
	d.SetMaxOpenConns(1)

	if _, err := d.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func insertBaseRow(t *testing.T, d *sql.DB, key string, freeGHz float64) {
	t.Helper()

	_, err := d.Exec(
		"INSERT INTO clusters (cluster_id, name, free_ghz) VALUES (?, ?, ?)",
		key, "cluster "+key, freeGHz,
	)
	if err != nil {
		t.Fatalf("failed to insert base row %s: %v", key, err)
	}
}

// stores builds one instance of every projection mode over the same
// database, with the base rows each mode needs already in place.
func stores(t *testing.T, d *sql.DB, keys ...string) map[string]secondary.ProjectionStore {
	t.Helper()

	for _, key := range keys {
		insertBaseRow(t, d, key, 4.8)
	}
	return map[string]secondary.ProjectionStore{
		secondary.ModeInline:       sqlite.NewInlineStore(d),
		secondary.ModeIndexedView:  sqlite.NewViewStore(d),
		secondary.ModeSummaryTable: sqlite.NewSummaryStore(d),
	}
}

func record(key string, cores float64, version uint64) *secondary.DerivedRecord {
	return &secondary.DerivedRecord{
		Key:          key,
		Attrs:        map[string]float64{"free_cores": cores},
		Version:      version,
		LastSyncedAt: time.Now().UTC(),
	}
}

func TestProjectionStoreUpsertGet(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for mode, store := range stores(t, d, "c1") {
		t.Run(mode, func(t *testing.T) {
			if _, err := store.Get(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
				t.Fatalf("expected ErrNotFound before upsert, got %v", err)
			}

			if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}

			got, err := store.Get(ctx, "c1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Attrs["free_cores"] != 2.0 {
				t.Errorf("expected free_cores 2.0, got %g", got.Attrs["free_cores"])
			}
			if got.Version != 1 {
				t.Errorf("expected version 1, got %d", got.Version)
			}
			if got.LastSyncedAt.IsZero() {
				t.Error("expected LastSyncedAt to be set")
			}
		})
	}
}

func TestProjectionStoreUpsertIdempotent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for mode, store := range stores(t, d, "c1") {
		t.Run(mode, func(t *testing.T) {
			rec := record("c1", 2.0, 1)
			if err := store.Upsert(ctx, rec); err != nil {
				t.Fatalf("first Upsert failed: %v", err)
			}
			if err := store.Upsert(ctx, rec); err != nil {
				t.Fatalf("second Upsert failed: %v", err)
			}

			got, err := store.Get(ctx, "c1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Attrs["free_cores"] != 2.0 || got.Version != 1 {
				t.Errorf("idempotent upsert changed state: %+v", got)
			}
		})
	}
}

func TestProjectionStoreVersionGuard(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for mode, store := range stores(t, d, "c1") {
		t.Run(mode, func(t *testing.T) {
			if err := store.Upsert(ctx, record("c1", 3.0, 2)); err != nil {
				t.Fatalf("Upsert v2 failed: %v", err)
			}
			// A superseded computation finishing late must be discarded.
			if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
				t.Fatalf("stale Upsert failed: %v", err)
			}

			got, err := store.Get(ctx, "c1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Attrs["free_cores"] != 3.0 {
				t.Errorf("stale write regressed projection to %g", got.Attrs["free_cores"])
			}
			if got.Version != 2 {
				t.Errorf("expected version 2, got %d", got.Version)
			}
		})
	}
}

func TestProjectionStoreRemove(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for mode, store := range stores(t, d, "c1") {
		t.Run(mode, func(t *testing.T) {
			if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			if err := store.Remove(ctx, "c1", 2); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}

			if _, err := store.Get(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after remove, got %v", err)
			}

			// Removing again stays idempotent.
			if err := store.Remove(ctx, "c1", 2); err != nil {
				t.Fatalf("second Remove failed: %v", err)
			}
		})
	}
}

// Inline and summary modes keep version memory across removal, so a
// superseded upsert retried after the delete cannot resurrect the value.
// View mode drops the row entirely and relies on per-key FIFO instead.
func TestProjectionStoreRemoveBlocksStaleUpsert(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	insertBaseRow(t, d, "c1", 4.8)

	versioned := map[string]secondary.ProjectionStore{
		secondary.ModeInline:       sqlite.NewInlineStore(d),
		secondary.ModeSummaryTable: sqlite.NewSummaryStore(d),
	}
	for mode, store := range versioned {
		t.Run(mode, func(t *testing.T) {
			if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			if err := store.Remove(ctx, "c1", 2); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
				t.Fatalf("stale Upsert failed: %v", err)
			}
			if _, err := store.Get(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
				t.Fatalf("stale upsert resurrected removed projection: %v", err)
			}
		})
	}
}

func TestProjectionStoreScanCursor(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	keys := []string{"c1", "c2", "c3", "c4", "c5"}
	for mode, store := range stores(t, d, keys...) {
		t.Run(mode, func(t *testing.T) {
			for i, key := range keys {
				if err := store.Upsert(ctx, record(key, float64(i+1), 1)); err != nil {
					t.Fatalf("Upsert %s failed: %v", key, err)
				}
			}

			var seen []string
			cursor := ""
			for {
				page, err := store.Scan(ctx, secondary.ScanRequest{AfterKey: cursor, Limit: 2})
				if err != nil {
					t.Fatalf("Scan failed: %v", err)
				}
				for _, rec := range page.Records {
					seen = append(seen, rec.Key)
				}
				if page.NextCursor == "" {
					break
				}
				cursor = page.NextCursor
			}

			if len(seen) != len(keys) {
				t.Fatalf("expected %d records, got %d (%v)", len(keys), len(seen), seen)
			}
			for i, key := range keys {
				if seen[i] != key {
					t.Errorf("expected key order %v, got %v", keys, seen)
					break
				}
			}
		})
	}
}

func TestSummaryStoreSoftDeleteKeepsAuditRow(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	store := sqlite.NewSummaryStore(d)

	if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Remove(ctx, "c1", 2); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// Reads treat the row as absent, but it survives for audit.
	var deletedAt sql.NullTime
	err := d.QueryRow("SELECT deleted_at FROM cluster_summary WHERE cluster_id = 'c1'").Scan(&deletedAt)
	if err != nil {
		t.Fatalf("audit row missing after soft delete: %v", err)
	}
	if !deletedAt.Valid {
		t.Error("expected deleted_at to be set")
	}

	// A re-insert with a newer version revives the row.
	if err := store.Upsert(ctx, record("c1", 1.0, 3)); err != nil {
		t.Fatalf("revive Upsert failed: %v", err)
	}
	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get after revive failed: %v", err)
	}
	if got.Attrs["free_cores"] != 1.0 {
		t.Errorf("expected revived free_cores 1.0, got %g", got.Attrs["free_cores"])
	}
}

func TestInlineStoreMissingBaseRowErrors(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	store := sqlite.NewInlineStore(d)

	// Inline mode has nowhere to put a projection without its base row;
	// a silent no-op would leave the key looking synchronized with
	// nothing readable.
	if err := store.Upsert(ctx, record("ghost", 2.0, 1)); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing base row, got %v", err)
	}
	if _, err := store.Get(ctx, "ghost"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInlineStoreStaleWriteIsStillDiscardedQuietly(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	insertBaseRow(t, d, "c1", 4.8)
	store := sqlite.NewInlineStore(d)

	if err := store.Upsert(ctx, record("c1", 3.0, 2)); err != nil {
		t.Fatalf("Upsert v2 failed: %v", err)
	}
	// Zero rows affected because of the version guard, not a missing
	// base row: no error.
	if err := store.Upsert(ctx, record("c1", 2.0, 1)); err != nil {
		t.Fatalf("stale Upsert should be a quiet no-op: %v", err)
	}
	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attrs["free_cores"] != 3.0 {
		t.Errorf("stale write regressed projection to %g", got.Attrs["free_cores"])
	}
}

func TestProjectionStoreVersionSeenAcrossRestarts(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for mode, store := range stores(t, d, "c1") {
		t.Run(mode, func(t *testing.T) {
			// Never-written keys report zero.
			v, err := store.Version(ctx, "c1")
			if err != nil {
				t.Fatalf("Version failed: %v", err)
			}
			if v != 0 {
				t.Fatalf("expected version 0 before any write, got %d", v)
			}

			if err := store.Upsert(ctx, record("c1", 2.0, 2)); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			if v, err = store.Version(ctx, "c1"); err != nil || v != 2 {
				t.Fatalf("expected version 2 after upsert, got %d (%v)", v, err)
			}

			if err := store.Remove(ctx, "c1", 3); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			v, err = store.Version(ctx, "c1")
			if err != nil {
				t.Fatalf("Version after remove failed: %v", err)
			}
			// Inline and summary modes keep version memory through
			// removal; view mode drops the row and restarts from zero.
			want := uint64(3)
			if mode == secondary.ModeIndexedView {
				want = 0
			}
			if v != want {
				t.Errorf("expected version %d after remove, got %d", want, v)
			}
		})
	}
}
