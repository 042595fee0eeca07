package cache

import (
	"context"
	"fmt"
)

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Enabled    bool
	Backend    string
	Directory  string
	TTLSeconds int
	MaxSizeMB  int
	Redis      RedisConfig
}

// Open builds the store described by opts. The returned close func releases
// backend connections and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	if opts.TTLSeconds == 0 {
		opts.TTLSeconds = DefaultTTLSeconds
	}

	switch opts.Backend {
	case "", BackendFile:
		store, err := NewFileStore(opts.Directory, opts.Enabled, opts.TTLSeconds, opts.MaxSizeMB)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case BackendRedis:
		if !opts.Enabled {
			return &FileStore{enabled: false}, noop, nil
		}
		client, err := ConnectRedis(ctx, opts.Redis)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client, opts.Redis.KeyPrefix, opts.TTLSeconds), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
