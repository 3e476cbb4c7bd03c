package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/projector/internal/app"
	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

func clusterPayload(key string, ghz float64) primary.ClusterPayload {
	return primary.ClusterPayload{
		Key:      key,
		Name:     key + "-name",
		IsActive: true,
		Stats:    map[string]float64{derive.ColFreeGHz: ghz},
	}
}

func TestImportInsertsAndProjects(t *testing.T) {
	e := newEngine(t, derive.FreeCores{}, fastRetry)
	importer := app.NewImportService(e.base, e.sync)
	ctx := context.Background()

	resp, err := importer.ImportClusters(ctx, primary.ImportRequest{
		Clusters: []primary.ClusterPayload{
			clusterPayload("c1", 4.8),
			clusterPayload("c2", 7.2),
		},
	})
	if err != nil {
		t.Fatalf("ImportClusters failed: %v", err)
	}
	if resp.Inserted != 2 || resp.Updated != 0 {
		t.Errorf("expected 2 inserted / 0 updated, got %d / %d", resp.Inserted, resp.Updated)
	}

	got, err := e.store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attrs[derive.ColFreeCores] != 2.0 {
		t.Errorf("expected free_cores 2.0, got %g", got.Attrs[derive.ColFreeCores])
	}

	base, err := e.base.Get(ctx, "c2")
	if err != nil {
		t.Fatalf("base Get failed: %v", err)
	}
	if base.Props["name"] != "c2-name" || !base.Active {
		t.Errorf("unexpected base row: %+v", base)
	}
}

func TestImportReimportUpdates(t *testing.T) {
	e := newEngine(t, derive.FreeCores{}, fastRetry)
	importer := app.NewImportService(e.base, e.sync)
	ctx := context.Background()

	batch := primary.ImportRequest{Clusters: []primary.ClusterPayload{clusterPayload("c1", 4.8)}}
	if _, err := importer.ImportClusters(ctx, batch); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	batch.Clusters[0].Stats[derive.ColFreeGHz] = 7.2
	resp, err := importer.ImportClusters(ctx, batch)
	if err != nil {
		t.Fatalf("reimport failed: %v", err)
	}
	if resp.Inserted != 0 || resp.Updated != 1 {
		t.Errorf("expected 0 inserted / 1 updated, got %d / %d", resp.Inserted, resp.Updated)
	}

	got, err := e.store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attrs[derive.ColFreeCores] != 3.0 {
		t.Errorf("expected free_cores 3.0 after reimport, got %g", got.Attrs[derive.ColFreeCores])
	}
}

func TestImportRejectsInvalidPayloads(t *testing.T) {
	e := newEngine(t, derive.FreeCores{}, fastRetry)
	importer := app.NewImportService(e.base, e.sync)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload primary.ClusterPayload
	}{
		{name: "empty key", payload: primary.ClusterPayload{Name: "x"}},
		{name: "empty name", payload: primary.ClusterPayload{Key: "c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.ImportClusters(ctx, primary.ImportRequest{
				Clusters: []primary.ClusterPayload{tt.payload},
			})
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestImportDomainErrorDoesNotAbortBatch(t *testing.T) {
	e := newEngine(t, derive.FreeCores{}, fastRetry)
	importer := app.NewImportService(e.base, e.sync)
	ctx := context.Background()

	resp, err := importer.ImportClusters(ctx, primary.ImportRequest{
		Clusters: []primary.ClusterPayload{
			clusterPayload("bad", -1),
			clusterPayload("good", 4.8),
		},
	})
	if err != nil {
		t.Fatalf("ImportClusters failed: %v", err)
	}
	if resp.Inserted != 2 {
		t.Errorf("expected both base rows inserted, got %d", resp.Inserted)
	}

	// The bad cluster's base row lands; its projection failure is drift.
	if _, err := e.base.Get(ctx, "bad"); err != nil {
		t.Fatalf("base row for bad cluster missing: %v", err)
	}
	if _, err := e.store.Get(ctx, "bad"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected no projection for bad cluster, got %v", err)
	}
	if got, err := e.store.Get(ctx, "good"); err != nil || got.Attrs[derive.ColFreeCores] != 2.0 {
		t.Fatalf("good cluster projection wrong: %+v, %v", got, err)
	}

	records, err := e.drift.List(ctx, 10)
	if err != nil {
		t.Fatalf("drift List failed: %v", err)
	}
	if len(records) != 1 || records[0].Key != "bad" {
		t.Fatalf("expected drift for bad cluster, got %+v", records)
	}
}

func TestImportDeleteCluster(t *testing.T) {
	e := newEngine(t, derive.FreeCores{}, fastRetry)
	importer := app.NewImportService(e.base, e.sync)
	ctx := context.Background()

	if _, err := importer.ImportClusters(ctx, primary.ImportRequest{
		Clusters: []primary.ClusterPayload{clusterPayload("c1", 4.8)},
	}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if err := importer.DeleteCluster(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCluster failed: %v", err)
	}
	if _, err := e.base.Get(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected base row gone, got %v", err)
	}
	if _, err := e.store.Get(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected projection gone, got %v", err)
	}

	if err := importer.DeleteCluster(ctx, "c1"); !errors.Is(err, secondary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
