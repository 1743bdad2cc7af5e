package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/pricing-engine/internal/fixtures"
	"github.com/noah-isme/pricing-engine/internal/quote"
)

func newQuoteCmd(c *cli) *cobra.Command {
	var (
		req  quote.Request
		seed string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one article for a client",
		Long: `Price one article for a client and print the quote with its breakdown.

With --seed the fixture is applied first, which makes offline what-if runs
possible against the memory store (DATABASE_URL=memory://).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infra, svc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer infra.Close()

			if seed != "" {
				data, err := fixtures.ReadFile(seed)
				if err != nil {
					return err
				}
				if _, err := fixtures.Apply(cmd.Context(), svc, data); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}

			res, err := svc.Quotes.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			decimal.MarshalJSONWithoutQuotes = true
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&req.Code, "code", "", "article code")
	cmd.Flags().IntVar(&req.Quantity, "qty", 1, "quantity")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "client id")
	cmd.Flags().StringSliceVar(&req.Extra, "extra", nil, "extra profile ids to simulate")
	cmd.Flags().StringSliceVar(&req.Exclude, "exclude", nil, "profile ids to leave out of the adjusted price")
	cmd.Flags().StringVar(&seed, "seed", "", "fixture file applied before quoting")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
