package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sp-hack/server/internal/seed"
)

func newSeedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with the event info, schedule and an admin",
		Long: `Write the event info and schedule and create one admin account.

The info row and the schedule are replaced; the admin credentials are
printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			location, err := time.LoadLocation(cfg.Event.Timezone)
			if err != nil {
				return fmt.Errorf("event timezone: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			repo, closeRepo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			creds, err := seed.Run(ctx, repo, location)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Seeded event info and schedule.")
			printCredentials(cmd, creds)
			return nil
		},
	}
}
