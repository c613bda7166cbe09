package chart

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptoindex/internal/indexer"
)

// Cache keeps rendered images for a fixed TTL.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	createdAt time.Time
	image     []byte
}

// NewCache returns nil when ttl is not positive, which disables caching.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{ttl: ttl, now: time.Now, entries: map[string]cacheEntry{}}
}

// Get returns a copy of a fresh entry.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.createdAt.Add(c.ttl)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
		delete(c.entries, key)
	}
	return nil, false
}

// Set stores img under key and drops expired entries.
func (c *Cache) Set(key string, img []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.createdAt.Add(c.ttl)) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{createdAt: now, image: img}
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(res *indexer.Result) string {
	ids := make([]string, 0, len(res.Weights))
	for id := range res.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s=%.6f,", id, res.Weights[id])
	}
	last, _ := res.Composite.Last()
	fmt.Fprintf(&b, "|%s|%s|%d|%s|%.4f|%t|%d|%d|%.6f", res.Provider, res.Quote, res.Days, res.Policy,
		res.AnnualRate, res.Normalized, len(res.Composite.Points), last.Time.Unix(), last.Value)
	return b.String()
}
