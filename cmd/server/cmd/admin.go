package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/config"
	"github.com/sp-hack/server/internal/storage/postgres"
)

const commandTimeout = 30 * time.Second

func newAdminCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin with a random login and password",
		Long: `Create an admin account with a random 12 character login and password.

The credentials are printed once; only the password hash is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			repo, closeRepo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			creds, hash, err := auth.NewCredentials()
			if err != nil {
				return err
			}
			if _, err := repo.Admins().Create(ctx, creds.Login, hash); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			printCredentials(cmd, creds)
			return nil
		},
	}

	cmd.AddCommand(create)
	return cmd
}

func openRepository(ctx context.Context, cfg config.Config) (*postgres.Repository, func(), error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool.Close, nil
}

func printCredentials(cmd *cobra.Command, creds auth.Credentials) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Login:    %s\n", creds.Login)
	fmt.Fprintf(out, "Password: %s\n", creds.Password)
}
