package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/config"
	"github.com/awwsmm/subway/internal/observability"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "subway",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "subway serves posts and authors behind local or Keycloak authentication",
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newHealthcheckCmd())

	return rootCmd
}

// loadConfig reads the configuration and builds the process logger
func loadConfig(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
