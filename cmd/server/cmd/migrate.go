package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sp-hack/server/internal/storage/postgres"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back database migrations.

Migrations are compiled into the binary. Pass --path to use a directory of
*.sql files instead (for example ` + postgres.DefaultMigrationsPath + `).`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: embedded migrations)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateUp(cfg.Database.URL, path); err != nil {
				return err
			}
			return printVersion(cmd, cfg.Database.URL, path)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateDown(cfg.Database.URL, path, steps); err != nil {
				return err
			}
			return printVersion(cmd, cfg.Database.URL, path)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return printVersion(cmd, cfg.Database.URL, path)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, databaseURL, path string) error {
	version, dirty, err := postgres.MigrationVersion(databaseURL, path)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}
