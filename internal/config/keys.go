package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrUnknownKey is returned by Get and Set for keys outside the settings tree.
var ErrUnknownKey = errors.New("unknown config key")

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func intField(ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

func durationField(ptr func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("expected a duration like 30s, got %q", v)
			}
			*ptr(c) = d
			return nil
		},
	}
}

//nolint:gochecknoglobals // Static key table.
var fields = map[string]field{
	"api.base_url":           stringField(func(c *Config) *string { return &c.API.BaseURL }),
	"api.timeout":            durationField(func(c *Config) *time.Duration { return &c.API.Timeout }),
	"cache.enabled":          boolField(func(c *Config) *bool { return &c.Cache.Enabled }),
	"cache.backend":          stringField(func(c *Config) *string { return &c.Cache.Backend }),
	"cache.directory":        stringField(func(c *Config) *string { return &c.Cache.Directory }),
	"cache.ttl_seconds":      intField(func(c *Config) *int { return &c.Cache.TTLSeconds }),
	"cache.max_size_mb":      intField(func(c *Config) *int { return &c.Cache.MaxSizeMB }),
	"cache.redis.addr":       stringField(func(c *Config) *string { return &c.Cache.Redis.Addr }),
	"cache.redis.password":   stringField(func(c *Config) *string { return &c.Cache.Redis.Password }),
	"cache.redis.db":         intField(func(c *Config) *int { return &c.Cache.Redis.DB }),
	"cache.redis.key_prefix": stringField(func(c *Config) *string { return &c.Cache.Redis.KeyPrefix }),
	"logging.level":          stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":         stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":           stringField(func(c *Config) *string { return &c.Logging.File }),
	"output.default_format":  stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.page_size":       intField(func(c *Config) *int { return &c.Output.PageSize }),
}

// Keys lists every dotted key accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at a dotted key such as "output.page_size".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses value into the dotted key and validates the result. On a
// validation failure c is left unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	next := *c
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
