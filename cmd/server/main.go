package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	_ "taskboard/docs"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/logger"
	"taskboard/internal/server"
)

// @title           Taskboard API
// @version         1.0
// @description     Multi-tenant project boards with columns, tasks, labels and comments.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Taskboard API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	s, err := server.Init(cfg)
	if err != nil {
		log.Error().Err(err).Msg("❌ Server initialization failed")
		return err
	}

	if err := s.Run(); err != nil {
		log.Error().Err(err).Msg("❌ Server stopped with error")
		return err
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error { return m.Down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(*database.Migrator) error) error {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	m, err := database.NewMigrator(cfg.MigrationURL())
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to open migrations")
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("closing migrator")
		}
	}()

	if err := fn(m); err != nil {
		log.Error().Err(err).Msg("❌ Migration failed")
		return err
	}
	return nil
}
