package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// cacheFileExtension is the file extension used for cache entries.
const cacheFileExtension = ".json"

// bytesPerMB converts the configured size limit.
const bytesPerMB = 1024 * 1024

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// Store is a response cache backend.
type Store interface {
	// Get returns the entry for key, ErrCacheNotFound or ErrCacheExpired.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set writes data under key with the store's TTL.
	Set(ctx context.Context, key string, data json.RawMessage) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) error
	// Prune removes expired entries and returns how many were removed.
	Prune(ctx context.Context) (int, error)
	// Stats summarizes the store for `cache stats`.
	Stats(ctx context.Context) (Stats, error)
	// IsEnabled reports whether the store serves entries at all.
	IsEnabled() bool
}

// Stats describes a store's contents.
type Stats struct {
	Backend   string `json:"backend"   yaml:"backend"`
	Location  string `json:"location"  yaml:"location"`
	Enabled   bool   `json:"enabled"   yaml:"enabled"`
	Entries   int    `json:"entries"   yaml:"entries"`
	SizeBytes int64  `json:"sizeBytes" yaml:"size_bytes"`
	TTL       string `json:"ttl"       yaml:"ttl"`
}

// FileStore keeps each entry in its own JSON file.
// Safe for concurrent use within one process.
type FileStore struct {
	directory  string
	enabled    bool
	ttlSeconds int

	// maxSizeMB bounds the directory size; 0 means unlimited.
	maxSizeMB int

	mu sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store, creating directory if needed.
// A disabled store rejects every operation with ErrCacheDisabled.
func NewFileStore(directory string, enabled bool, ttlSeconds, maxSizeMB int) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory:  directory,
		enabled:    true,
		ttlSeconds: ttlSeconds,
		maxSizeMB:  maxSizeMB,
	}, nil
}

// Get reads the entry for key. Expired entries are removed in the background.
func (s *FileStore) Get(_ context.Context, key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}

	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.keyToFilePath(key)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}

	if entry.IsExpired() {
		go func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			_ = os.Remove(filePath)
		}()
		return nil, ErrCacheExpired
	}

	return &entry, nil
}

// Set writes data under key, replacing any existing entry, then evicts the
// oldest entries while the directory is over its size limit.
func (s *FileStore) Set(_ context.Context, key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := NewEntry(key, data, s.ttlSeconds)
	entryData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	filePath := s.keyToFilePath(key)

	// Write to temporary file first, then rename for atomicity
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, entryData, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}

	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return s.evictLocked(filePath)
}

// Delete removes key. Missing entries are not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// Clear removes every cache file in the directory.
func (s *FileStore) Clear(_ context.Context) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.cacheFilesLocked()
	if err != nil {
		return err
	}

	for _, f := range files {
		if removeErr := os.Remove(f.path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(f.path), removeErr)
		}
	}

	return nil
}

// Prune removes expired and unreadable entries.
func (s *FileStore) Prune(_ context.Context) (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.cacheFilesLocked()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		data, readErr := os.ReadFile(f.path)
		if readErr != nil {
			continue
		}

		var entry Entry
		if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil || entry.IsExpired() {
			if os.Remove(f.path) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// Stats counts entries and bytes on disk.
func (s *FileStore) Stats(_ context.Context) (Stats, error) {
	stats := Stats{
		Backend: BackendFile,
		Enabled: s.enabled,
	}
	if !s.enabled {
		return stats, nil
	}
	stats.Location = s.directory
	stats.TTL = FormatDuration(time.Duration(s.ttlSeconds) * time.Second)

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.cacheFilesLocked()
	if err != nil {
		return stats, err
	}
	stats.Entries = len(files)
	for _, f := range files {
		stats.SizeBytes += f.size
	}
	return stats, nil
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the cache directory path.
func (s *FileStore) Directory() string {
	return s.directory
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

// cacheFilesLocked lists cache files. Callers hold mu.
func (s *FileStore) cacheFilesLocked() ([]cacheFile, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	files := make([]cacheFile, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != cacheFileExtension {
			continue
		}
		info, infoErr := de.Info()
		if infoErr != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(s.directory, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}

// evictLocked removes the oldest files until the directory fits maxSizeMB.
// keep is never evicted. Callers hold mu.
func (s *FileStore) evictLocked(keep string) error {
	if s.maxSizeMB <= 0 {
		return nil
	}
	limit := int64(s.maxSizeMB) * bytesPerMB

	files, err := s.cacheFilesLocked()
	if err != nil {
		return err
	}

	var total int64
	for _, f := range files {
		total += f.size
	}
	if total <= limit {
		return nil
	}

	slices.SortFunc(files, func(a, b cacheFile) int { return a.modTime.Compare(b.modTime) })
	for _, f := range files {
		if total <= limit {
			break
		}
		if f.path == keep {
			continue
		}
		if os.Remove(f.path) == nil {
			total -= f.size
		}
	}
	return nil
}

// keyToFilePath converts a cache key to a filesystem-safe file path.
func (s *FileStore) keyToFilePath(key string) string {
	safeKey := strings.ReplaceAll(key, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, ":", "_")
	return filepath.Join(s.directory, safeKey+cacheFileExtension)
}
