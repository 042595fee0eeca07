package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spendview/spendview/internal/logging"
)

// EnvProjectDir points at a project whose .spendview/config.yaml overlays the
// global file.
const EnvProjectDir = "SPENDVIEW_PROJECT_DIR"

// ResolveProjectDir finds the project-local .spendview directory. It checks,
// in order, flagValue, SPENDVIEW_PROJECT_DIR and a walk up from startDir
// looking for .spendview/config.yaml. The global config directory is never
// treated as a project. Returns "" when nothing is found.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}
	if envDir := os.Getenv(EnvProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}
	if startDir == "" {
		return ""
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	global, _ := filepath.Abs(GetConfigDir())
	for {
		candidate := filepath.Join(dir, configDirName)
		if candidate != global {
			if _, statErr := os.Stat(filepath.Join(candidate, configFileName)); statErr == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadLayered builds the effective config: defaults, then the global file at
// globalPath, then the project overlay in projectDir (if any), then the
// environment seen through lookup. Flags are applied by the caller.
func LoadLayered(ctx context.Context, globalPath, projectDir string, lookup func(string) (string, bool)) (*Config, error) {
	cfg, err := Load(globalPath)
	if err != nil {
		return nil, err
	}

	if projectDir != "" {
		overlayPath := filepath.Join(projectDir, configFileName)
		switch _, statErr := os.Stat(overlayPath); {
		case statErr == nil:
			if err = ShallowMergeYAML(cfg, overlayPath); err != nil {
				return nil, err
			}
			logging.FromContext(ctx).Debug().
				Str("component", "config").
				Str("overlay_path", overlayPath).
				Msg("applied project config")
		case !errors.Is(statErr, os.ErrNotExist):
			return nil, fmt.Errorf("cannot access project config %s: %w", overlayPath, statErr)
		}
	}

	if err = cfg.ApplyEnvFunc(lookup); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

// toAbsProjectDir makes dir absolute and appends ".spendview" unless it is
// already there.
func toAbsProjectDir(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		abs = dir
	}

	if filepath.Base(abs) == configDirName {
		return abs
	}
	return filepath.Join(abs, configDirName)
}
