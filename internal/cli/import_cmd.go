package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/wire"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a cluster batch from JSON",
		Long: `Import clusters from a JSON file (or stdin with "-"). Each cluster is
upserted into the base table and its projection is synchronized.

The file holds either {"clusters": [...]} or a bare array of clusters:
  {"cluster_id": "c1", "cluster_name": "prod-east", "is_active": true,
   "stats": {"free_ghz": 4.8}}

Examples:
  projector import clusters.json
  cat clusters.json | projector import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			req, err := readBatch(args[0])
			if err != nil {
				return err
			}

			resp, err := wire.ImportService().ImportClusters(ctx, *req)
			if err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}
			if err := wire.SyncService().Close(ctx); err != nil {
				return fmt.Errorf("failed to flush synchronizer: %w", err)
			}

			fmt.Printf("✓ Imported %d clusters (%d new, %d updated)\n",
				resp.Inserted+resp.Updated, resp.Inserted, resp.Updated)
			return nil
		},
	}
}

// RemoveCmd returns the remove command
func RemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [cluster-id]",
		Short: "Remove a cluster and its projection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := wire.ImportService().DeleteCluster(ctx, args[0]); err != nil {
				return err
			}
			if err := wire.SyncService().Close(ctx); err != nil {
				return fmt.Errorf("failed to flush synchronizer: %w", err)
			}

			fmt.Printf("✓ Cluster %s removed\n", args[0])
			return nil
		},
	}
}

// readBatch parses an import file, accepting both the wrapped and the
// bare-array payload shape.
func readBatch(path string) (*primary.ImportRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	req := &primary.ImportRequest{}
	if err := json.Unmarshal(data, req); err == nil && len(req.Clusters) > 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req.Clusters); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	return req, nil
}
