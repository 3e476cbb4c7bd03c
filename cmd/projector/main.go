package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/cli"
	"github.com/example/projector/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "projector",
		Short:   "Projector - derived-value synchronization for cluster capacity",
		Version: version.String(),
		Long: `Projector keeps derived cluster attributes (like free cores computed
from free GHz) synchronized with the base cluster table. It imports
cluster batches, follows mutation feeds, and audits projections for
drift.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ImportCmd())
	rootCmd.AddCommand(cli.RemoveCmd())
	rootCmd.AddCommand(cli.ApplyCmd())
	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.GetCmd())
	rootCmd.AddCommand(cli.ScanCmd())
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.DriftCmd())
	rootCmd.AddCommand(cli.StatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
