package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/tether/config"
)

func newConfigCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if c.Dir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", c.Dir)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# defaults")
			}
			return c.Write(cmd.OutOrStdout())
		},
	}
}
