// Package cli wires configuration, storage and the HTTP server behind cobra commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"conference-webapp/config"
	"conference-webapp/database"
	"conference-webapp/database/mongodb"
	"conference-webapp/database/postgres"
	"conference-webapp/database/sqlite"
	"conference-webapp/logging"
)

// NewRootCommand creates the conference-webapp command. Without a subcommand it serves HTTP.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "conference-webapp",
		Short:         "Conference management backend",
		Long:          "REST backend for talk proposals, session scheduling, registrations and feedback.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewCreateAdminCommand())
	cmd.AddCommand(NewSeedCommand())

	return cmd
}

// environment loads the configuration and builds the logger every command uses.
func environment(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()), nil
}

// openStore opens the backend DB_DRIVER selects. Opening applies the schema.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (database.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL, logger)
	case config.DriverMongo:
		return mongodb.Open(ctx, cfg.MongoConnString, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
