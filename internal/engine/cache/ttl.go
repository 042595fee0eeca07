package cache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL and size limits.
const (
	// DefaultTTLSeconds is the default cache TTL (1 hour).
	DefaultTTLSeconds = 3600

	// MinTTLSeconds is the minimum allowed TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the maximum allowed TTL (7 days).
	MaxTTLSeconds = 604800

	// DefaultCacheMaxSizeMB is the default maximum file cache size in MB.
	DefaultCacheMaxSizeMB = 100

	minutesPerHour = 60
	hoursPerDay    = 24
)

// Environment overrides.
const (
	EnvTTLSeconds   = "SPENDVIEW_CACHE_TTL_SECONDS"
	EnvCacheEnabled = "SPENDVIEW_CACHE_ENABLED"
	EnvCacheDir     = "SPENDVIEW_CACHE_DIR"
	EnvCacheMaxSize = "SPENDVIEW_CACHE_MAX_SIZE_MB"
	EnvCacheBackend = "SPENDVIEW_CACHE_BACKEND"
	EnvRedisAddr    = "SPENDVIEW_REDIS_ADDR"
)

// ErrInvalidTTL is returned for TTLs outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ValidateTTL checks the TTL range.
func ValidateTTL(seconds int) error {
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return nil
}

// DefaultOptions returns an enabled file cache in directory.
func DefaultOptions(directory string) Options {
	return Options{
		Enabled:    true,
		Backend:    BackendFile,
		Directory:  directory,
		TTLSeconds: DefaultTTLSeconds,
		MaxSizeMB:  DefaultCacheMaxSizeMB,
		Redis:      RedisConfig{KeyPrefix: DefaultRedisKeyPrefix},
	}
}

// ApplyEnv overlays SPENDVIEW_CACHE_* and SPENDVIEW_REDIS_ADDR onto o.
// Invalid values are skipped and reported in the returned error; valid ones
// still apply.
func (o *Options) ApplyEnv() error {
	return o.ApplyEnvFunc(os.LookupEnv)
}

// ApplyEnvFunc is ApplyEnv with an injectable lookup.
func (o *Options) ApplyEnvFunc(lookup func(string) (string, bool)) error {
	var errs []error

	if v, ok := lookup(EnvCacheEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvCacheEnabled, err))
		} else {
			o.Enabled = enabled
		}
	}

	if v, ok := lookup(EnvTTLSeconds); ok && v != "" {
		ttl, err := ParseTTL(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTTLSeconds, err))
		} else {
			o.TTLSeconds = ttl
		}
	}

	if v, ok := lookup(EnvCacheMaxSize); ok && v != "" {
		size, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", EnvCacheMaxSize, err))
		case size < 0:
			errs = append(errs, fmt.Errorf("%s: must be >= 0, got %d", EnvCacheMaxSize, size))
		default:
			o.MaxSizeMB = size
		}
	}

	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		o.Directory = v
	}

	if v, ok := lookup(EnvCacheBackend); ok && v != "" {
		if v != BackendFile && v != BackendRedis {
			errs = append(errs, fmt.Errorf("%s: unknown backend %q", EnvCacheBackend, v))
		} else {
			o.Backend = v
		}
	}

	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		o.Redis.Addr = v
	}

	return errors.Join(errs...)
}

// FormatDuration formats a duration compactly, e.g. "30s", "5m", "2h30m", "3d".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL accepts integer seconds ("3600") or a Go duration ("1h30m").
func ParseTTL(s string) (int, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		return seconds, ValidateTTL(seconds)
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}

	seconds := int(duration.Seconds())
	return seconds, ValidateTTL(seconds)
}
