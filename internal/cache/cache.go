package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrMiss is returned by Get when no live entry exists for the key
var ErrMiss = errors.New("cache miss")

const entrySuffix = ".json"

// Cache defines the interface for local file caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Cleanup(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry is the on-disk representation of a cached value
type Entry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// FileCache stores one JSON file per key under a directory
type FileCache struct {
	directory  string
	maxBytes   int64
	defaultTTL time.Duration
	now        func() time.Time

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewFileCache creates the cache directory if needed
func NewFileCache(directory string, maxSizeMB int, defaultTTL time.Duration) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{
		directory:  directory,
		maxBytes:   int64(maxSizeMB) * 1024 * 1024,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Key joins parts into a single cache key
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Directory returns the resolved cache directory
func (c *FileCache) Directory() string {
	return c.directory
}

// Get retrieves data from cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)

	entry, err := readEntry(path)
	if err != nil {
		c.misses++
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMiss
		}

		return nil, err
	}

	if entry.Key != key || c.now().After(entry.ExpiresAt) {
		c.misses++
		_ = os.Remove(path)

		return nil, ErrMiss
	}

	c.hits++

	return entry.Data, nil
}

// Set stores data in cache with TTL; a zero ttl uses the cache default
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := c.now()

	payload, err := json.Marshal(Entry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enforceSize(int64(len(payload))); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	if err := os.WriteFile(c.entryPath(key), payload, 0o600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry from cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.entryPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Clear removes all entries and resets statistics
func (c *FileCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.entryFiles()
	if err != nil {
		return err
	}

	for _, f := range files {
		_ = os.Remove(f.path)
	}

	c.hits, c.misses = 0, 0

	return nil
}

// Cleanup removes expired entries and reports how many were removed
func (c *FileCache) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.entryFiles()
	if err != nil {
		return 0, err
	}

	now := c.now()
	removed := 0

	for _, f := range files {
		entry, err := readEntry(f.path)
		if err != nil || now.After(entry.ExpiresAt) {
			_ = os.Remove(f.path)
			removed++
		}
	}

	return removed, nil
}

// GetStats returns cache statistics
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.entryFiles()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalEntries: int64(len(files)),
		Hits:         c.hits,
		Misses:       c.misses,
	}

	for _, f := range files {
		stats.TotalSize += f.size
	}

	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	return stats, nil
}

type entryFile struct {
	path    string
	size    int64
	modTime time.Time
}

// entryFiles lists cache files; callers hold c.mu
func (c *FileCache) entryFiles() ([]entryFile, error) {
	dirEntries, err := os.ReadDir(c.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	files := make([]entryFile, 0, len(dirEntries))

	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), entrySuffix) {
			continue
		}

		info, err := d.Info()
		if err != nil {
			continue
		}

		files = append(files, entryFile{
			path:    filepath.Join(c.directory, d.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	return files, nil
}

// enforceSize evicts the oldest entries until newSize fits; callers hold c.mu
func (c *FileCache) enforceSize(newSize int64) error {
	files, err := c.entryFiles()
	if err != nil {
		return err
	}

	var current int64
	for _, f := range files {
		current += f.size
	}

	if current+newSize <= c.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if current+newSize <= c.maxBytes {
			break
		}

		if err := os.Remove(f.path); err == nil {
			current -= f.size
		}
	}

	return nil
}

func (c *FileCache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.directory, hex.EncodeToString(sum[:])[:32]+entrySuffix)
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry: %w", err)
	}

	return &entry, nil
}
