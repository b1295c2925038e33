// tether CLI - runs the host/script bridge demo and inspects its journals
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/tether/config"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
	os.Exit(1)
}

// loadConfig reads the file named by --config, or the nearest tether.toml,
// or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	c, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = config.Default()
	}
	return c, nil
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		verbosity  int
		noColor    bool
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "tether",
		Short:         "Host/script object bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("verbose") {
				c.Log.Verbosity = verbosity
			}
			c.ConfigureLogging()
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to tether.toml (default: nearest tether.toml)")
	root.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	current := func() *config.Config { return cfg }
	root.AddCommand(
		newDemoCommand(current),
		newJournalCommand(current),
		newConfigCommand(current),
		newStatsCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fatal(err)
	}
}
