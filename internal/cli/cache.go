package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCacheCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}
	cmd.AddCommand(newCacheStatsCmd(rt), newCacheClearCmd(rt), newCachePruneCmd(rt))
	return cmd
}

func newCacheStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend, size and TTL",
		Args:  cobra.NoArgs,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			store, err := rt.cacheStore(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.format(), stats, func(tw *tabwriter.Writer) {
				row(tw, "Backend:", stats.Backend)
				row(tw, "Location:", stats.Location)
				row(tw, "Enabled:", strconv.FormatBool(stats.Enabled))
				row(tw, "Entries:", strconv.Itoa(stats.Entries))
				row(tw, "Size:", formatBytes(stats.SizeBytes))
				row(tw, "TTL:", stats.TTL)
			})
		}),
	}
}

func newCacheClearCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			store, err := rt.cacheStore(cmd.Context())
			if err != nil {
				return err
			}
			if err = store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		}),
	}
}

func newCachePruneCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired responses",
		Args:  cobra.NoArgs,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			store, err := rt.cacheStore(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.Prune(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
			return nil
		}),
	}
}

// formatBytes renders n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
