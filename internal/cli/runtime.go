package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/config"
	"github.com/spendview/spendview/internal/engine"
	"github.com/spendview/spendview/internal/engine/cache"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
)

// runtime is the state of one command invocation: the effective config, the
// log sink and the lazily opened cache and transport.
type runtime struct {
	lookupEnv func(string) (string, bool)

	cfg        *config.Config
	configPath string
	logResult  *logging.LogPathResult

	store      cache.Store
	closeStore func() error
	released   bool
}

// setup resolves the config (defaults < global file < project overlay < env
// < flags) and installs the logger on the command context.
func (r *runtime) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	r.configPath, _ = flags.GetString("config")
	if r.configPath == "" {
		r.configPath = config.DefaultPath()
	}

	wd, _ := os.Getwd()
	projectDir := config.ResolveProjectDir(cmd.Context(), "", wd)
	cfg, err := config.LoadLayered(cmd.Context(), r.configPath, projectDir, r.lookupEnv)
	if err != nil {
		return err
	}

	if flags.Changed("api-url") {
		cfg.API.BaseURL, _ = flags.GetString("api-url")
	}
	if ttl, _ := flags.GetInt("cache-ttl"); ttl > 0 {
		cfg.Cache.TTLSeconds = ttl
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("output") {
		format, _ := flags.GetString("output")
		if !config.IsValidFormat(format) {
			return fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
		}
		cfg.Output.DefaultFormat = format
	}
	r.cfg = cfg

	result := setupLogging(cmd, cfg.Logging)
	r.logResult = &result
	return nil
}

// release closes the cache backend and the log file. It is safe to call more
// than once.
func (r *runtime) release(cmd *cobra.Command) error {
	if r.released {
		return nil
	}
	r.released = true

	var errs []error
	if r.closeStore != nil {
		errs = append(errs, r.closeStore())
	}
	errs = append(errs, cleanupLogging(cmd, r.logResult))
	return errors.Join(errs...)
}

// runE wraps a command body so resources are released when it fails, since
// cobra skips PersistentPostRunE after an error.
func (r *runtime) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err != nil {
			_ = r.release(cmd)
		}
		return err
	}
}

// cacheStore opens the configured backend once.
func (r *runtime) cacheStore(ctx context.Context) (cache.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, closeFn, err := cache.Open(ctx, r.cfg.CacheOptions())
	if err != nil {
		return nil, err
	}
	r.store, r.closeStore = store, closeFn
	return store, nil
}

// viewOptions validates the config and builds the transport stack: HTTP,
// wrapped by the response cache when it is enabled and reachable.
func (r *runtime) viewOptions(ctx context.Context) (engine.ViewOptions, error) {
	if err := r.cfg.Validate(); err != nil {
		return engine.ViewOptions{}, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := *logging.FromContext(ctx)
	var transport fetch.Transport = api.NewHTTPTransport(r.cfg.API.BaseURL, r.cfg.API.Timeout, logger)

	if r.cfg.Cache.Enabled {
		store, err := r.cacheStore(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("response cache unavailable, continuing without it")
		} else {
			transport = api.NewCachedTransport(transport, store, logger)
		}
	}

	return engine.ViewOptions{Transport: transport, Logger: logger, Context: ctx}, nil
}

// format is the effective output format.
func (r *runtime) format() string {
	return r.cfg.Output.DefaultFormat
}
