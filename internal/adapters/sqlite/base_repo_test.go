package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/projector/internal/adapters/sqlite"
	"github.com/example/projector/internal/ports/secondary"
)

func TestBaseRepositoryUpsertAndGet(t *testing.T) {
	d := setupTestDB(t)
	repo := sqlite.NewBaseRepository(d)
	ctx := context.Background()

	rec := &secondary.BaseRecord{
		Key:    "cluster-1",
		Props:  map[string]string{"name": "alpha", "environment": "prod", "region": "eu-west"},
		Attrs:  map[string]float64{"free_ghz": 4.8, "cpu_usage": 51.5},
		Active: true,
	}

	inserted, err := repo.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !inserted {
		t.Error("expected first upsert to insert")
	}

	got, err := repo.Get(ctx, "cluster-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Props["name"] != "alpha" || got.Props["environment"] != "prod" {
		t.Errorf("unexpected props: %v", got.Props)
	}
	if got.Attrs["free_ghz"] != 4.8 {
		t.Errorf("expected free_ghz 4.8, got %g", got.Attrs["free_ghz"])
	}
	if _, ok := got.Attrs["active_connections"]; ok {
		t.Error("unset stat must not appear in attrs")
	}

	// Second upsert updates in place.
	rec.Attrs["free_ghz"] = 2.4
	inserted, err = repo.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if inserted {
		t.Error("expected second upsert to update")
	}

	got, err = repo.Get(ctx, "cluster-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attrs["free_ghz"] != 2.4 {
		t.Errorf("expected updated free_ghz 2.4, got %g", got.Attrs["free_ghz"])
	}
}

func TestBaseRepositoryGetMissing(t *testing.T) {
	d := setupTestDB(t)
	repo := sqlite.NewBaseRepository(d)

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBaseRepositoryDelete(t *testing.T) {
	d := setupTestDB(t)
	repo := sqlite.NewBaseRepository(d)
	ctx := context.Background()
	insertBaseRow(t, d, "cluster-1", 4.8)

	if err := repo.Delete(ctx, "cluster-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "cluster-1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestBaseRepositoryListKeys(t *testing.T) {
	d := setupTestDB(t)
	repo := sqlite.NewBaseRepository(d)
	ctx := context.Background()

	for _, key := range []string{"c3", "c1", "c2"} {
		insertBaseRow(t, d, key, 1.2)
	}

	first, err := repo.ListKeys(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(first) != 2 || first[0] != "c1" || first[1] != "c2" {
		t.Fatalf("expected [c1 c2], got %v", first)
	}

	rest, err := repo.ListKeys(ctx, first[len(first)-1], 2)
	if err != nil {
		t.Fatalf("ListKeys resume failed: %v", err)
	}
	if len(rest) != 1 || rest[0] != "c3" {
		t.Fatalf("expected [c3], got %v", rest)
	}
}
