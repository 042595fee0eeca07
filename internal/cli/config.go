package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spendview/spendview/internal/config"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the spendview configuration file",
		Long: `Reads and writes the configuration file (default ~/.spendview/config.yaml).

Keys use dotted paths, e.g. api.base_url, cache.ttl_seconds or output.page_size.`,
	}
	cmd.AddCommand(
		newConfigInitCmd(rt),
		newConfigGetCmd(rt),
		newConfigSetCmd(rt),
		newConfigShowCmd(rt),
	)
	return cmd
}

func newConfigInitCmd(rt *runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(rt.configPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", rt.configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.New().Save(rt.configPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", rt.configPath)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print the effective value of a key",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			value, err := rt.cfg.Get(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		}),
	}
}

func newConfigSetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a key in the configuration file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		Example: `  spendview config set output.page_size 25
  spendview config set cache.backend redis
  spendview config set cache.redis.addr localhost:6379`,
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			// Edit the file alone so env vars and the project overlay are not
			// persisted.
			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			if err = cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err = cfg.Save(rt.configPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		}),
	}
}

func newConfigShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if rt.format() == config.FormatYAML {
				// Same layout as the config file.
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(rt.cfg); err != nil {
					return err
				}
				return enc.Close()
			}
			return render(out, rt.format(), rt.cfg, func(tw *tabwriter.Writer) {
				for _, key := range config.Keys() {
					value, _ := rt.cfg.Get(key)
					row(tw, key, value)
				}
			})
		}),
	}
}
