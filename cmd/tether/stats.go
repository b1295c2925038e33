package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/tether/wire"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Decode a CBOR stats snapshot written by demo --stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}
			s, err := wire.UnmarshalStats(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s at %s\n", bold("session"), s.Session, s.Taken.Format("2006-01-02 15:04:05"))
			printStats(out, s)
			return nil
		},
	}
}
