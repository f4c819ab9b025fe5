package main

import (
	"fmt"

	"stepstyle/config"
	pgStorage "stepstyle/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate needs storage.driver=%s, got %q", config.StorageDriverPostgres, cfg.Storage.Driver)
			}

			ctx := cmd.Context()
			pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			applied, err := pgStorage.Migrate(ctx, pool, log)
			if err != nil {
				return err
			}
			log.Info().Int("applied", applied).Msg("Migrations complete")
			return nil
		},
	}
}
