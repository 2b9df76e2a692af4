package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventify/internal/config"
	"github.com/Shivanand-hulikatti/eventify/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := config.LoadDatabase()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			version, err := database.MigrateUp(db.MigrationURL())
			if err != nil {
				return err
			}
			stderrLogger().Info("schema up to date", slog.Uint64("version", uint64(version)))
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive, got %d", steps)
			}
			db, err := config.LoadDatabase()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := database.MigrateDown(db.MigrationURL(), steps); err != nil {
				return err
			}
			stderrLogger().Info("rolled back migrations", slog.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
