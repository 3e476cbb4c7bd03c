package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/wire"
)

// GetCmd returns the get command
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [cluster-id]",
		Short: "Show the derived projection for a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.DerivedAdapter().Get(context.Background(), args[0])
		},
	}
}

// ScanCmd returns the scan command
func ScanCmd() *cobra.Command {
	var after string
	var limit int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List derived projections in key order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.DerivedAdapter().Scan(context.Background(), after, limit)
			return err
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "Resume after this cluster ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows per page")

	return cmd
}
