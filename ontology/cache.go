package ontology

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached ontology with its load metadata.
type entry struct {
	model    *Model
	info     Info
	warnings []string
	loadedAt time.Time
}

// cache is a bounded TTL map keyed by ontology URI. Expiry is checked on
// read; when the capacity is exceeded the oldest entry is evicted.
// Concurrent loads of the same URI coalesce through the singleflight group.
type cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	ttl      time.Duration
	capacity int
	group    singleflight.Group
}

func newCache(ttl time.Duration, capacity int) *cache {
	return &cache{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		capacity: capacity,
	}
}

func (c *cache) get(uri string) (*entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[uri]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.loadedAt) > c.ttl {
		c.mu.Lock()
		// Recheck under the write lock; a concurrent reload may have
		// refreshed the entry.
		if cur, ok := c.entries[uri]; ok && time.Since(cur.loadedAt) > c.ttl {
			delete(c.entries, uri)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e, true
}

// resolve finds an entry by exact URI or, failing that, by the trailing
// path segment callers use as a short ontology id.
func (c *cache) resolve(id string) (*entry, bool) {
	if e, ok := c.get(id); ok {
		return e, true
	}
	c.mu.RLock()
	var match string
	for uri := range c.entries {
		if tailSegment(uri) == id {
			match = uri
			break
		}
	}
	c.mu.RUnlock()
	if match == "" {
		return nil, false
	}
	return c.get(match)
}

func (c *cache) put(uri string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uri] = e
	if c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := ""
		var oldestAt time.Time
		for key, cur := range c.entries {
			if oldest == "" || cur.loadedAt.Before(oldestAt) {
				oldest = key
				oldestAt = cur.loadedAt
			}
		}
		delete(c.entries, oldest)
	}
}

func (c *cache) remove(uri string) {
	c.mu.Lock()
	delete(c.entries, uri)
	c.mu.Unlock()
}

func (c *cache) uris() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for uri := range c.entries {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// loadOnce coalesces concurrent loads of the same URI into one call to fn.
func (c *cache) loadOnce(ctx context.Context, uri string, fn func() (*entry, error)) (*entry, error) {
	v, err, _ := c.group.Do(uri, func() (any, error) {
		if e, ok := c.get(uri); ok {
			return e, nil
		}
		e, err := fn()
		if err != nil {
			return nil, err
		}
		c.put(uri, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

func tailSegment(uri string) string {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' || uri[i] == '#' {
			return uri[i+1:]
		}
	}
	return uri
}
