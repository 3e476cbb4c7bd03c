package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/core/keystate"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and projection health",
		Long: `Display the active configuration and a quick health summary:
projection mode, retry policy, projection count, and outstanding drift.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := wire.Cfg()

			fmt.Println("Projector Status")
			fmt.Println()
			fmt.Printf("Mode:        %s\n", cfg.Mode)
			staleness, _ := cfg.Staleness()
			if staleness == 0 {
				fmt.Println("Sync:        synchronous (staleness_window 0)")
			} else {
				fmt.Printf("Sync:        async, staleness window %s\n", staleness)
			}
			fmt.Printf("Retry limit: %d\n", cfg.RetryLimit)
			fmt.Printf("Self-heal:   %t\n", cfg.SelfHeal)
			fmt.Println()

			projections, err := countProjections(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Projections: %d\n", projections)

			// State counts cover keys touched by this process; a standalone
			// status invocation has none.
			if counts := wire.SyncService().StateCounts(); len(counts) > 0 {
				fmt.Println("Key states:")
				for _, state := range []keystate.State{
					keystate.StatePending, keystate.StateConsistent,
					keystate.StateFailed, keystate.StateAbsent,
				} {
					if counts[state] > 0 {
						fmt.Printf("  %-11s %d\n", state, counts[state])
					}
				}
			}

			records, err := wire.MonitorService().ListDrift(ctx, 1000)
			if err != nil {
				return fmt.Errorf("failed to list drift: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("Drift:       none recorded")
			} else {
				fmt.Printf("Drift:       %d reports (see `projector drift`)\n", len(records))
			}

			return nil
		},
	}
}

// countProjections pages through the store to count synchronized keys.
func countProjections(ctx context.Context) (int, error) {
	count := 0
	cursor := ""
	for {
		resp, err := wire.ReadService().ScanDerived(ctx, primary.ScanDerivedRequest{Cursor: cursor, Limit: 500})
		if err != nil {
			return 0, fmt.Errorf("failed to scan projections: %w", err)
		}
		count += len(resp.Rows)
		if resp.NextCursor == "" {
			return count, nil
		}
		cursor = resp.NextCursor
	}
}
