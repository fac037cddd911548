package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/asthma-api/app"
)

const defaultSeedTimeout = 30 * time.Second

// NewSeedTestUserCmd creates the seed-test-user subcommand.
func NewSeedTestUserCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed-test-user",
		Short: "Create the development test account",
		Long: `Creates the PATIENT account test@example.com for local development.
Running it again leaves the existing account untouched. Refused when
environment is production.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := app.New(cfg, app.WithoutServer())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return svc.RunTask(ctx, func(ctx context.Context) error {
				u, created, err := svc.SeedTestUser(ctx)
				if err != nil {
					return err
				}
				if created {
					cmd.Printf("Created test user %s (%s)\n", u.Email, u.ID)
				} else {
					cmd.Printf("Test user %s already exists (%s)\n", u.Email, u.ID)
				}
				cmd.Printf("Password: %s\n", app.TestUserPassword)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for the seed task")
	return cmd
}
