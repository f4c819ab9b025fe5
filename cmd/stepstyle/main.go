package main

import (
	"fmt"
	"os"

	"stepstyle/config"
	"stepstyle/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const flagConfig = "config"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stepstyle: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stepstyle",
		Short:         "StepStyle storefront API with a step-coin wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String(flagConfig, "", "path to a YAML config file (default ./config.yaml or ./config/config.yaml)")

	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand())
	return cmd
}

// loadConfig reads and validates configuration, then builds the logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}
