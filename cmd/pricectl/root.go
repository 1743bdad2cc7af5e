package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/pricing-engine/internal/app"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/obs"
)

type cli struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var verbose bool
	root := &cobra.Command{
		Use:          "pricectl",
		Short:        "Administer the price resolution engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if verbose {
				level = "debug"
			}
			c.cfg = cfg
			c.logger = obs.NewLogger("console", level).With().Str("component", "pricectl").Logger()
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newMigrateCmd(c), newSeedCmd(c), newQuoteCmd(c))
	return root
}

// open connects using the loaded configuration and builds the services.
func (c *cli) open(ctx context.Context) (*app.Infra, *app.Services, error) {
	infra, err := app.Open(ctx, c.cfg, c.logger, "pricectl")
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.NewServices(infra, c.cfg, c.logger)
	if err != nil {
		_ = infra.Close()
		return nil, nil, fmt.Errorf("build services: %w", err)
	}
	return infra, svc, nil
}
