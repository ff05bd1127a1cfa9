package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-api/internal/config"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect and maintain appointment slot schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config/config.yml)")

	root.AddCommand(
		newGenerateCmd(),
		newProvidersCmd(),
		newMigrateCmd(),
		newSeedCmd(),
	)
	return root
}

// loadConfig is swapped in tests.
var loadConfig = config.LoadConfig

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
