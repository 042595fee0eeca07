// Package cli implements the spendview command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spendview/spendview/internal/engine/cache"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// writerIsTerminal reports whether w is a terminal file. Redirected command
// output (a buffer in tests) never is.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// NewRootCmd creates the root command for the spendview CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit environment
// lookup, so tests can inject SPENDVIEW_* variables.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	rt := &runtime{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:           "spendview",
		Short:         "Browse federal agency spending and reporting data",
		Long:          "spendview: page, sort and compare agency reporting data from the USAspending API",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cacheTTL, _ := cmd.Flags().GetInt("cache-ttl")
			if cacheTTL < 0 {
				return fmt.Errorf("cache-ttl must be >= 0, got %d", cacheTTL)
			}
			if cacheTTL > 0 {
				if err := cache.ValidateTTL(cacheTTL); err != nil {
					return fmt.Errorf("--cache-ttl: %w", err)
				}
			}
			return rt.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.release(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	flags.String("api-url", "", "spending API base URL (overrides config file and env var)")
	flags.Int("cache-ttl", 0, "cache TTL in seconds (0 = use config default)")
	flags.Bool("no-cache", false, "bypass the response cache")
	flags.StringP("output", "o", "", "output format: table, json or yaml (default from config)")
	flags.String("config", "", "config file path (default ~/.spendview/config.yaml)")

	cmd.AddCommand(
		newAgencyCmd(rt),
		newPeriodsCmd(rt),
		newCacheCmd(rt),
		newConfigCmd(rt),
		newFixtureCmd(rt),
	)

	return cmd
}

const rootCmdExample = `  # Show an agency profile
  spendview agency overview 012

  # Page through reporting periods, sorted by obligation difference
  spendview agency periods 012 --sort obligation_difference:desc --page 2

  # Publication history of one period as JSON
  spendview agency publications 012 --fy 2020 --period 9 -o json

  # Browse interactively
  spendview agency browse 097

  # Compare several agencies
  spendview agency compare 012 020 075 097

  # Serve the offline fixture API and point spendview at it
  spendview fixture serve --addr :8089
  spendview --api-url http://localhost:8089 agency overview 020`
