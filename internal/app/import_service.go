package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/core/mutation"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

// ImportServiceImpl implements the ImportService interface. The importer
// plays the external-mutator role: it writes the base relation and feeds
// the matching mutation events into the synchronizer.
type ImportServiceImpl struct {
	base secondary.BaseRepository
	sync primary.SyncService
}

// NewImportService creates an importer over the base relation.
func NewImportService(base secondary.BaseRepository, syncService primary.SyncService) *ImportServiceImpl {
	return &ImportServiceImpl{base: base, sync: syncService}
}

// ImportClusters upserts a batch of clusters. Each upsert emits the
// matching insert or update event; a sync failure on one cluster does not
// abort the batch (the synchronizer records it as drift).
func (s *ImportServiceImpl) ImportClusters(ctx context.Context, req primary.ImportRequest) (*primary.ImportResponse, error) {
	resp := &primary.ImportResponse{}

	for _, cluster := range req.Clusters {
		if cluster.Key == "" {
			return resp, fmt.Errorf("cluster with empty cluster_id in import batch")
		}
		if cluster.Name == "" {
			return resp, fmt.Errorf("cluster %s has no cluster_name", cluster.Key)
		}

		old, err := s.base.Get(ctx, cluster.Key)
		if err != nil && !errors.Is(err, secondary.ErrNotFound) {
			return resp, fmt.Errorf("failed to read cluster %s: %w", cluster.Key, err)
		}

		record := payloadToRecord(cluster)
		inserted, err := s.base.Upsert(ctx, record)
		if err != nil {
			return resp, fmt.Errorf("failed to import cluster %s: %w", cluster.Key, err)
		}

		newRow := derive.BaseRow{Key: cluster.Key, Attrs: record.Attrs}
		var event mutation.Event
		if inserted {
			resp.Inserted++
			event = mutation.Insert(newRow)
		} else {
			resp.Updated++
			oldRow := derive.BaseRow{Key: cluster.Key, Attrs: old.Attrs}
			event = mutation.Update(oldRow, newRow)
		}

		if err := s.sync.Apply(ctx, event); err != nil {
			// The base write is committed; a projection failure is a
			// per-key drift concern, not an import failure.
			log.Printf("projector: import synced %s with error: %v", cluster.Key, err)
		}
	}

	return resp, nil
}

// DeleteCluster removes a base row and retires its projection.
func (s *ImportServiceImpl) DeleteCluster(ctx context.Context, key string) error {
	if err := s.base.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", key, err)
	}
	if err := s.sync.Apply(ctx, mutation.Delete(key)); err != nil {
		log.Printf("projector: delete of %s synced with error: %v", key, err)
	}
	return nil
}

func payloadToRecord(p primary.ClusterPayload) *secondary.BaseRecord {
	record := &secondary.BaseRecord{
		Key:    p.Key,
		Props:  map[string]string{"name": p.Name},
		Attrs:  map[string]float64{},
		Active: p.IsActive,
	}
	if p.Environment != "" {
		record.Props["environment"] = p.Environment
	}
	if p.Region != "" {
		record.Props["region"] = p.Region
	}
	if p.Owner != "" {
		record.Props["owner"] = p.Owner
	}
	for col, v := range p.Stats {
		record.Attrs[col] = v
	}
	return record
}

// Ensure ImportServiceImpl implements the interface
var _ primary.ImportService = (*ImportServiceImpl)(nil)
