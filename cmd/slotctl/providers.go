package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tHOURS\tWEEKENDS")
			for _, p := range cfg.Providers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%02d-%02d\t%t\n", p.ID, p.Name, p.Specialty, p.StartHour, p.EndHour, p.WeekendEligible)
			}
			return tw.Flush()
		},
	}
}
