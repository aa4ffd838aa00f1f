package caching

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the cache file name inside the state directory.
const DefaultFileName = "resolved.yaml"

type entry struct {
	Value    string    `yaml:"value"`
	StoredAt time.Time `yaml:"stored_at"`
}

type cacheFile struct {
	Entries map[string]entry `yaml:"entries"`
}

// Cache is a small persistent key/value cache with a TTL, backed by one
// YAML file. It maps landing-page URLs to the audio URLs found on them.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	dirty   bool
}

// NewCache loads the cache at path. A missing file yields an empty cache.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	c := &Cache{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]entry{},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var f cacheFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse cache %s: %w", path, err)
	}
	if f.Entries != nil {
		c.entries = f.Entries
	}
	return c, nil
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl {
		return "", false
	}
	return e.Value, true
}

// Set stores a value in memory; call Save to persist it.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{Value: value, StoredAt: c.now()}
	c.dirty = true
}

// Delete drops a key, e.g. when the cached target stopped working.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.dirty = true
	}
}

// Save writes the cache back to disk, pruning expired entries. It is a
// no-op when nothing changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	if c.ttl > 0 {
		for k, e := range c.entries {
			if c.now().Sub(e.StoredAt) > c.ttl {
				delete(c.entries, k)
			}
		}
	}

	data, err := yaml.Marshal(cacheFile{Entries: c.entries})
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	c.dirty = false
	return nil
}
