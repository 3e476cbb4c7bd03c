package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/projector/internal/config"
	"github.com/example/projector/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the projector database and config",
		Long: `Initialize the projector database with the required schema and write
a default .projector/config.json in the current directory.

Examples:
  projector init
  projector init --mode summary-table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if mode != "" {
				cfg.Mode = mode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			dbPath := cfg.DBPath
			if dbPath == "" {
				var err error
				dbPath, err = db.DefaultPath()
				if err != nil {
					return fmt.Errorf("failed to get database path: %w", err)
				}
			}

			fmt.Printf("Initializing projector database at %s\n", dbPath)
			if _, err := db.GetDB(dbPath); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			fmt.Println("✓ Database initialized successfully")

			if _, err := os.Stat(".projector/config.json"); os.IsNotExist(err) {
				if err := config.SaveConfig(".", cfg); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				fmt.Println("✓ Config written to .projector/config.json")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  projector import clusters.json")
			fmt.Println("  projector status")

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Projection mode: inline, indexed-view, or summary-table")

	return cmd
}
