// Package cache is a file-backed key/value store with a fixed time-to-live,
// used to avoid redundant upstream fetches between runs.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is how long an entry stays valid, measured from write time.
const DefaultTTL = 24 * time.Hour

// entry is the on-disk shape of one cache file.
type entry struct {
	CacheTime time.Time       `json:"cacheTime"`
	Data      json.RawMessage `json:"data"`
}

// Cache stores one JSON file per key under a directory. Writes are
// last-writer-wins with no locking across processes; a racing concurrent
// writer can corrupt at most the one entry involved, and the entry
// self-heals on the next refresh.
type Cache struct {
	dir string
	ttl time.Duration

	now func() time.Time
}

// New creates (or reuses) a cache rooted at dir. A non-positive ttl takes
// DefaultTTL.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key, or nil when the entry is missing,
// expired, or unreadable. Expired entries are not deleted here; cleanup is
// the explicit ClearExpired operation.
func (c *Cache) Get(key string) []byte {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil
	}
	if c.now().Sub(e.CacheTime) >= c.ttl {
		return nil
	}
	return e.Data
}

// Set stores value under key, unconditionally overwriting any previous
// entry. The write goes through a temp file and rename.
func (c *Cache) Set(key string, value []byte) error {
	e := entry{CacheTime: c.now(), Data: value}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming cache entry %s: %w", key, err)
	}
	return nil
}

// ClearExpired removes every expired entry and returns the number removed.
func (c *Cache) ClearExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("listing cache dir: %w", err)
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(c.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || c.now().Sub(e.CacheTime) >= c.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("listing cache dir: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
			return fmt.Errorf("removing cache entry: %w", err)
		}
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, sanitizeKey(key)+".json")
}

// sanitizeKey replaces every byte outside [A-Za-z0-9._-] so arbitrary
// symbols (BRK.B, tickers with slashes) map to safe file names.
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
