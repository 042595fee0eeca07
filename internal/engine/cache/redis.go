package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces cache keys in a shared Redis.
const DefaultRedisKeyPrefix = "spendview:cache:"

// scanBatch is the COUNT hint for SCAN.
const scanBatch = 100

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"       json:"addr"`
	Password  string `yaml:"password"   json:"-"`
	DB        int    `yaml:"db"         json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// RedisStore keeps entries in Redis with native key expiry.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	ttlSeconds int
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string, ttlSeconds int) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		ttlSeconds: ttlSeconds,
	}
}

// Get returns the entry for key.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	if entry.IsExpired() {
		return nil, ErrCacheExpired
	}
	return &entry, nil
}

// Set writes data under key with SET EX.
func (s *RedisStore) Set(ctx context.Context, key string, data json.RawMessage) error {
	if key == "" {
		return ErrInvalidCacheKey
	}

	entryData, err := json.Marshal(NewEntry(key, data, s.ttlSeconds))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	ttl := time.Duration(s.ttlSeconds) * time.Second
	if err := s.client.Set(ctx, s.prefix+key, entryData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Prune is a no-op: Redis expires keys itself.
func (s *RedisStore) Prune(context.Context) (int, error) {
	return 0, nil
}

// Stats counts keys under the prefix and sums their sizes.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Backend:  BackendRedis,
		Location: s.client.Options().Addr + "/" + s.prefix,
		Enabled:  true,
		TTL:      FormatDuration(time.Duration(s.ttlSeconds) * time.Second),
	}

	keys, err := s.keys(ctx)
	if err != nil {
		return stats, err
	}
	stats.Entries = len(keys)
	if len(keys) == 0 {
		return stats, nil
	}

	pipe := s.client.Pipeline()
	lens := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		lens[i] = pipe.StrLen(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return stats, fmt.Errorf("failed to size cache entries: %w", err)
	}
	for _, l := range lens {
		stats.SizeBytes += l.Val()
	}
	return stats, nil
}

// IsEnabled is always true; a disabled cache never builds a RedisStore.
func (s *RedisStore) IsEnabled() bool {
	return true
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
