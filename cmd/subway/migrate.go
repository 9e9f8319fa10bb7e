package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/repositories/postgres"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(db *postgres.DB) error { return db.RunMigrations() })
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(db *postgres.DB) error { return db.RollbackMigrations() })
		},
	})

	return migrateCmd
}

func withDB(cmd *cobra.Command, fn func(db *postgres.DB) error) error {
	cfg, logger, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := fn(db); err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}
	logger.Info("migration complete", zap.String("command", cmd.Name()))
	return nil
}
