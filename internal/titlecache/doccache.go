package titlecache

import (
	"sync"
	"time"

	"github.com/fwirtz/amphora/internal/models"
)

// DefaultDocSetCapacity bounds how many per-title document subsets are kept.
const DefaultDocSetCapacity = 10

type docEntry struct {
	docs     []models.Document
	lastUsed time.Time
}

// DocSetCache caches the document subset belonging to a resolved canonical
// title. Filtering the full store is expensive and the same title is queried
// repeatedly within a session, so subsets are kept until capacity forces out
// the least-recently-used one. Safe for concurrent use.
type DocSetCache struct {
	mu      sync.Mutex
	entries map[string]*docEntry

	capacity int
	now      func() time.Time
}

// NewDocSetCache creates a DocSetCache. capacity <= 0 selects the default.
// clock overrides time.Now for tests and may be nil.
func NewDocSetCache(capacity int, clock func() time.Time) *DocSetCache {
	if capacity <= 0 {
		capacity = DefaultDocSetCapacity
	}
	if clock == nil {
		clock = time.Now
	}
	return &DocSetCache{
		entries:  make(map[string]*docEntry),
		capacity: capacity,
		now:      clock,
	}
}

// GetOrBuild returns the cached subset for a title, or runs build to compute
// it. The build function executes outside the lock so a slow store fetch
// never blocks other cache users; only the map mutation around its result is
// guarded. On insert overflow the least-recently-used title is evicted.
func (c *DocSetCache) GetOrBuild(title string, build func() ([]models.Document, error)) ([]models.Document, error) {
	c.mu.Lock()
	if e, ok := c.entries[title]; ok {
		e.lastUsed = c.now()
		docs := e.docs
		c.mu.Unlock()
		return docs, nil
	}
	c.mu.Unlock()

	docs, err := build()
	if err != nil {
		return nil, err
	}

	c.put(title, docs)
	return docs, nil
}

// put inserts or overwrites an entry. A concurrent build for the same title
// simply overwrites; entries are replaced wholesale, never merged.
func (c *DocSetCache) put(title string, docs []models.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[title] = &docEntry{docs: docs, lastUsed: c.now()}

	for len(c.entries) > c.capacity {
		oldest := ""
		var oldestUsed time.Time
		for t, e := range c.entries {
			if oldest == "" || e.lastUsed.Before(oldestUsed) {
				oldest = t
				oldestUsed = e.lastUsed
			}
		}
		delete(c.entries, oldest)
	}
}

// Invalidate drops the cached subset for a title, forcing the next lookup
// to rebuild it.
func (c *DocSetCache) Invalidate(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, title)
}

// Contains reports whether a subset is cached for the title.
func (c *DocSetCache) Contains(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[title]
	return ok
}

// Len returns the number of cached subsets.
func (c *DocSetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
