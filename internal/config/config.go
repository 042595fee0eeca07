// Package config loads, validates and persists spendview settings.
//
// Settings come from ~/.spendview/config.yaml (the directory can be moved with
// SPENDVIEW_HOME), an optional project overlay at .spendview/config.yaml,
// SPENDVIEW_* environment variables and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine/cache"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Defaults.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 10
	MaxPageSize     = 100

	configDirName  = ".spendview"
	configFileName = "config.yaml"
	cacheDirName   = "cache"
)

// Environment variables read by ApplyEnv. Cache variables are owned by the
// cache package.
const (
	EnvHome       = "SPENDVIEW_HOME"
	EnvAPIURL     = "SPENDVIEW_API_URL"
	EnvAPITimeout = "SPENDVIEW_API_TIMEOUT"
	EnvLogLevel   = "SPENDVIEW_LOG_LEVEL"
	EnvLogFormat  = "SPENDVIEW_LOG_FORMAT"
)

// Validation errors.
var (
	ErrInvalidURL     = errors.New("api.base_url must be an absolute http(s) URL")
	ErrInvalidTimeout = errors.New("api.timeout must be positive")
	ErrInvalidBackend = errors.New("cache.backend must be file or redis")
	ErrInvalidFormat  = errors.New("output.default_format must be table, json or yaml")
	ErrInvalidPage    = fmt.Errorf("output.page_size must be between 1 and %d", MaxPageSize)
)

// Config is the full settings tree.
type Config struct {
	API     APIConfig     `yaml:"api"     json:"api"`
	Cache   CacheConfig   `yaml:"cache"   json:"cache"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Output  OutputConfig  `yaml:"output"  json:"output"`
}

// APIConfig selects the spending API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout"  json:"timeout"`
}

// CacheConfig mirrors cache.Options in YAML form.
type CacheConfig struct {
	Enabled    bool              `yaml:"enabled"     json:"enabled"`
	Backend    string            `yaml:"backend"     json:"backend"`
	Directory  string            `yaml:"directory"   json:"directory"`
	TTLSeconds int               `yaml:"ttl_seconds" json:"ttl_seconds"`
	MaxSizeMB  int               `yaml:"max_size_mb" json:"max_size_mb"`
	Redis      cache.RedisConfig `yaml:"redis"       json:"redis"`
}

// LoggingConfig controls the CLI logger. An empty File logs to stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"  json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file"   json:"file"`
}

// OutputConfig holds rendering defaults.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	PageSize      int    `yaml:"page_size"      json:"page_size"`
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: api.DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Backend:    cache.BackendFile,
			Directory:  filepath.Join(GetConfigDir(), cacheDirName),
			TTLSeconds: cache.DefaultTTLSeconds,
			MaxSizeMB:  cache.DefaultCacheMaxSizeMB,
			Redis:      cache.RedisConfig{KeyPrefix: cache.DefaultRedisKeyPrefix},
		},
		Logging: LoggingConfig{
			Level:  "error",
			Format: "console",
		},
		Output: OutputConfig{
			DefaultFormat: FormatTable,
			PageSize:      DefaultPageSize,
		},
	}
}

// GetConfigDir returns $SPENDVIEW_HOME, or ~/.spendview. If the home
// directory cannot be determined it falls back to ./.spendview.
func GetConfigDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(home, configDirName)
}

// DefaultPath is the global config file location.
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), configFileName)
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays SPENDVIEW_* variables from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFunc(os.LookupEnv)
}

// ApplyEnvFunc overlays variables found through lookup. Invalid values are
// skipped and reported together; valid ones still apply.
func (c *Config) ApplyEnvFunc(lookup func(string) (string, bool)) error {
	var errs []error

	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvAPITimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvAPITimeout, err))
		} else {
			c.API.Timeout = d
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Logging.Format = v
	}

	opts := c.CacheOptions()
	if err := opts.ApplyEnvFunc(lookup); err != nil {
		errs = append(errs, err)
	}
	c.setCacheOptions(opts)

	return errors.Join(errs...)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidURL, c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.API.Timeout))
	}

	if err = cache.ValidateTTL(c.Cache.TTLSeconds); err != nil {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds: %w", err))
	}
	if c.Cache.Backend != cache.BackendFile && c.Cache.Backend != cache.BackendRedis {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Cache.Backend))
	}
	if c.Cache.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("cache.max_size_mb must be >= 0, got %d", c.Cache.MaxSizeMB))
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.Enabled && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
	}

	if !IsValidFormat(c.Output.DefaultFormat) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.DefaultFormat))
	}
	if c.Output.PageSize < 1 || c.Output.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidPage, c.Output.PageSize))
	}

	return errors.Join(errs...)
}

// IsValidFormat reports whether format is a supported output format.
func IsValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	default:
		return false
	}
}

// CacheOptions converts the cache section for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Enabled:    c.Cache.Enabled,
		Backend:    c.Cache.Backend,
		Directory:  c.Cache.Directory,
		TTLSeconds: c.Cache.TTLSeconds,
		MaxSizeMB:  c.Cache.MaxSizeMB,
		Redis:      c.Cache.Redis,
	}
}

func (c *Config) setCacheOptions(o cache.Options) {
	c.Cache.Enabled = o.Enabled
	c.Cache.Backend = o.Backend
	c.Cache.Directory = o.Directory
	c.Cache.TTLSeconds = o.TTLSeconds
	c.Cache.MaxSizeMB = o.MaxSizeMB
	c.Cache.Redis = o.Redis
}
