package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pricing-engine/internal/app"
	"github.com/noah-isme/pricing-engine/internal/db/migrate"
	"github.com/noah-isme/pricing-engine/internal/lock"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	runner := func() (migrate.Runner, error) {
		if c.cfg.UsesMemoryStore() {
			return migrate.Runner{}, fmt.Errorf("DATABASE_URL points at the memory store; nothing to migrate")
		}
		return migrate.Runner{DatabaseURL: c.cfg.DatabaseURL, Logger: c.logger, LockTTL: c.cfg.LockTTL}, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner()
			if err != nil {
				return err
			}
			infra, err := app.Open(cmd.Context(), c.cfg, c.logger, "pricectl")
			if err != nil {
				return err
			}
			defer infra.Close()
			if infra.Redis != nil {
				r.Locker = lock.Locker{R: infra.Redis, RetryBackoff: c.cfg.LockRetryBackoff}
			}
			return r.Up(cmd.Context())
		},
	}, &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default one step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps must be an integer: %w", err)
				}
				steps = n
			}
			r, err := runner()
			if err != nil {
				return err
			}
			return r.Down(steps)
		},
	}, &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner()
			if err != nil {
				return err
			}
			v, dirty, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
			return nil
		},
	})
	return cmd
}
