package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/spendview/spendview/internal/fixture"
	"github.com/spendview/spendview/internal/logging"
)

// defaultFixtureAddr is where `fixture serve` listens by default.
const defaultFixtureAddr = "localhost:8089"

func newFixtureCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Offline stand-in for the spending API",
	}
	cmd.AddCommand(newFixtureServeCmd(rt))
	return cmd
}

func newFixtureServeCmd(rt *runtime) *cobra.Command {
	var (
		addr    string
		latency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in agency dataset over HTTP",
		Long: `Serves agencies 012, 020, 075 and 097 with the same routes, paging and
sorting as the spending API. Stop with Ctrl+C.`,
		Args:    cobra.NoArgs,
		Example: "  spendview fixture serve --addr localhost:8089 --latency 300ms",
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := logging.ComponentLogger(*logging.FromContext(ctx), "fixture")
			srv := fixture.New(nil, fixture.WithLatency(latency), fixture.WithLogger(logger))
			cmd.PrintErrf("Serving fixture API on http://%s\n", addr)
			return srv.ListenAndServe(ctx, addr)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", defaultFixtureAddr, "listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "delay added to every response")
	return cmd
}
