package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/wire"
)

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Verify projections against the base table",
		Long: `Re-derive every cluster's projection from the base table and compare it
with the stored value. Divergence is recorded as drift; with self_heal
enabled in the config, drifted keys are resynchronized.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.DriftAdapter().Sweep(context.Background(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Keys per verification batch")

	return cmd
}

// DriftCmd returns the drift command
func DriftCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "List recorded drift reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.DriftAdapter().List(context.Background(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum reports to show")

	return cmd
}
