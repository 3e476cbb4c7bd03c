package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/wire"
)

// ApplyCmd returns the apply command
func ApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [feed-file]",
		Short: "Apply a mutation feed once",
		Long: `Read a JSON-lines mutation feed to the end and synchronize every
event, then exit. Use "-" to read from stdin.

Each line is one event:
  {"op": "insert", "key": "c1", "new": {"free_ghz": 4.8}}
  {"op": "update", "key": "c1", "old": {"free_ghz": 4.8}, "new": {"free_ghz": 7.2}}
  {"op": "delete", "key": "c1"}

Examples:
  projector apply mutations.jsonl
  tail -n 100 mutations.jsonl | projector apply -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			src := os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open feed: %w", err)
				}
				defer f.Close()
				src = f
			}

			stats, err := wire.FeedReader().Apply(ctx, src)
			if err != nil {
				return err
			}
			if err := wire.SyncService().Close(ctx); err != nil {
				return fmt.Errorf("failed to flush synchronizer: %w", err)
			}

			fmt.Printf("✓ Feed applied: %d synchronized, %d skipped, %d failed\n",
				stats.Applied, stats.Skipped, stats.Failed)
			return nil
		},
	}
}

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [feed-file]",
		Short: "Follow a mutation feed continuously",
		Long: `Catch up on the feed file, then keep synchronizing as the producer
appends new events. Stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s (ctrl-c to stop)\n", args[0])
			err := wire.FeedTailer(args[0]).Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			if err := wire.SyncService().Close(context.Background()); err != nil {
				return fmt.Errorf("failed to flush synchronizer: %w", err)
			}
			fmt.Println("✓ Feed watcher stopped")
			return nil
		},
	}
}
