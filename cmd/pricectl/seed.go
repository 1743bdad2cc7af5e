package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pricing-engine/internal/fixtures"
	"github.com/noah-isme/pricing-engine/internal/lock"
)

const seedLockKey = "pricing:seed"

func newSeedCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load articles, profiles, assignments and special prices from YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fixtures.ReadFile(file)
			if err != nil {
				return err
			}
			infra, svc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			var sum fixtures.Summary
			apply := func(ctx context.Context) error {
				sum, err = fixtures.Apply(ctx, svc, data)
				return err
			}
			if infra.Redis != nil {
				err = lock.Locker{R: infra.Redis, RetryBackoff: c.cfg.LockRetryBackoff}.WithLock(cmd.Context(), seedLockKey, c.cfg.LockTTL, apply)
			} else {
				err = apply(cmd.Context())
			}
			if err != nil {
				return err
			}
			c.logger.Info().
				Int("articles", sum.Articles).
				Int("profiles", sum.Profiles).
				Int("rules", sum.Rules).
				Int("assignments", sum.Assignments).
				Int("specials", sum.Specials).
				Msg("fixtures applied")
			if c.cfg.UsesMemoryStore() {
				fmt.Fprintln(cmd.ErrOrStderr(), "memory store: seeded data is discarded on exit")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
