package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pscheid92/timecapsule/internal/adapter/postgres"
	"github.com/pscheid92/timecapsule/internal/platform/config"
	"github.com/pscheid92/timecapsule/internal/platform/logging"
	"github.com/spf13/cobra"
)

// NewMigrateCommand applies pending schema migrations. It takes the same
// advisory lock as server startup, so it can run alongside rolling deploys.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
				return err
			}
			v, err := postgres.MigrationVersion(ctx, pool)
			if err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]int32{"schema_version": v})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait for the migration lock and apply migrations")

	return cmd
}
