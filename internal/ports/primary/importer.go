package primary

import "context"

// ImportService defines the primary port for loading cluster data into the
// base relation. Importing is the external-mutator role: every base write
// it performs is forwarded to the synchronizer as a mutation event.
type ImportService interface {
	// ImportClusters upserts a batch of clusters and emits the matching
	// insert/update events.
	ImportClusters(ctx context.Context, req ImportRequest) (*ImportResponse, error)

	// DeleteCluster removes a base row and emits a delete event.
	DeleteCluster(ctx context.Context, key string) error
}

// ClusterPayload is one cluster in an import batch: descriptive properties
// plus the latest numeric stats.
type ClusterPayload struct {
	Key         string             `json:"cluster_id"`
	Name        string             `json:"cluster_name"`
	Environment string             `json:"environment,omitempty"`
	Region      string             `json:"region,omitempty"`
	Owner       string             `json:"owner,omitempty"`
	IsActive    bool               `json:"is_active"`
	Stats       map[string]float64 `json:"stats"`
}

// ImportRequest is a batch of clusters to load.
type ImportRequest struct {
	Clusters []ClusterPayload `json:"clusters"`
}

// ImportResponse summarizes an import batch.
type ImportResponse struct {
	Inserted int
	Updated  int
}
