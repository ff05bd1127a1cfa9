package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-api/internal/app"
)

// newSeedCmd upserts the configured providers and, with --generate, fills
// each provider's default horizon.
func newSeedCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg.Log))
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d providers\n", len(cfg.Providers))
			if !generate {
				return nil
			}

			done, err := a.SlotService.RegenerateAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "generated slots for %d providers\n", done)
			return err
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "also generate the default horizon")
	return cmd
}
