// Package cache stores per-file extraction records between runs, keyed by
// source path and invalidated by content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Cache is a file-backed cache. A disabled cache is a no-op.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached record.
type Entry struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// New creates a cache rooted at dir.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: time.Duration(ttlHours) * time.Hour, enabled: true}, nil
}

// HashBytes computes the content hash used for invalidation.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// keyPath maps a cache key to its file. Keys are arbitrary strings (source
// paths), hashed to keep the directory flat.
func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x.json", xxhash.Sum64String(key)))
}

// Get returns the cached data for key when its content hash matches and the
// entry is within TTL.
func (c *Cache) Get(key, contentHash string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	raw, err := os.ReadFile(c.keyPath(key))
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if entry.Hash != contentHash || time.Since(entry.Timestamp) > c.ttl {
		os.Remove(c.keyPath(key))
		return nil, false
	}
	return entry.Data, true
}

// Put stores data for key under the given content hash.
func (c *Cache) Put(key, contentHash string, data []byte) error {
	if !c.enabled {
		return nil
	}
	entry := Entry{Hash: contentHash, Timestamp: time.Now().UTC(), Data: data}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(key), raw, 0o644)
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}
