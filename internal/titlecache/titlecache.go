// Package titlecache implements the two caching tiers used by title-scoped
// retrieval: a per-collection cache of canonical titles with TTL and LRU
// eviction, and a per-title cache of resolved document subsets.
package titlecache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fwirtz/amphora/internal/matcher"
)

const (
	// DefaultTTL is how long a collection's title set stays valid.
	DefaultTTL = time.Hour

	// DefaultMaxCollections bounds how many collections are cached at once.
	DefaultMaxCollections = 20
)

// Options configures a TitleCache. Zero values select the defaults.
type Options struct {
	TTL            time.Duration
	MaxCollections int

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger *slog.Logger
}

type titleEntry struct {
	titles    map[string]struct{}
	expiresAt time.Time
	lastUsed  time.Time
}

// TitleCache maps collection names to their sets of canonical titles.
// Entries expire after a fixed TTL and are purged lazily on access; when the
// number of cached collections exceeds the bound, the least-recently-used
// entry is evicted. All methods are safe for concurrent use.
type TitleCache struct {
	mu      sync.Mutex
	entries map[string]*titleEntry

	ttl    time.Duration
	max    int
	now    func() time.Time
	logger *slog.Logger
}

// New creates a TitleCache.
func New(opts Options) *TitleCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxCollections <= 0 {
		opts.MaxCollections = DefaultMaxCollections
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TitleCache{
		entries: make(map[string]*titleEntry),
		ttl:     opts.TTL,
		max:     opts.MaxCollections,
		now:     opts.Clock,
		logger:  opts.Logger,
	}
}

// AddTitles replaces the cached title set for a collection with a fresh TTL.
// Duplicate titles collapse into one entry. If the cache then holds more
// collections than the bound, the least-recently-used one is evicted.
func (c *TitleCache) AddTitles(collection string, titles []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		set[t] = struct{}{}
	}

	now := c.now()
	c.entries[collection] = &titleEntry{
		titles:    set,
		expiresAt: now.Add(c.ttl),
		lastUsed:  now,
	}
	c.logger.Debug("cached collection titles", "collection", collection, "titles", len(set))

	c.cleanupLocked()
}

// cleanupLocked drops expired entries, then evicts the LRU entry while the
// collection count exceeds the bound. Caller holds the lock.
func (c *TitleCache) cleanupLocked() {
	now := c.now()
	for name, e := range c.entries {
		if now.After(e.expiresAt) {
			c.logger.Debug("title cache expired", "collection", name)
			delete(c.entries, name)
		}
	}

	for len(c.entries) > c.max {
		oldest := ""
		var oldestUsed time.Time
		for name, e := range c.entries {
			if oldest == "" || e.lastUsed.Before(oldestUsed) {
				oldest = name
				oldestUsed = e.lastUsed
			}
		}
		c.logger.Debug("evicting least recently used title cache", "collection", oldest)
		delete(c.entries, oldest)
	}
}

// HasCachedTitles reports whether an unexpired title set exists for the
// collection. An expired entry is purged as a side effect and reported
// as absent. A hit refreshes the entry's last-used time.
func (c *TitleCache) HasCachedTitles(collection string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(collection) != nil
}

// lookupLocked returns the live entry for a collection, purging it if
// expired. Touches last-used on hit. Caller holds the lock.
func (c *TitleCache) lookupLocked(collection string) *titleEntry {
	e, ok := c.entries[collection]
	if !ok {
		return nil
	}
	now := c.now()
	if now.After(e.expiresAt) {
		c.logger.Debug("title cache expired", "collection", collection)
		delete(c.entries, collection)
		return nil
	}
	e.lastUsed = now
	return e
}

// CachedTitles returns the cached titles for a collection in sorted order,
// or nil if the collection has no live entry. Sorting keeps fuzzy-match
// tie-breaking deterministic.
func (c *TitleCache) CachedTitles(collection string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookupLocked(collection)
	if e == nil {
		return nil
	}
	titles := make([]string, 0, len(e.titles))
	for t := range e.titles {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// Contains reports whether the exact title is cached for the collection.
func (c *TitleCache) Contains(collection, title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookupLocked(collection)
	if e == nil {
		return false
	}
	_, ok := e.titles[title]
	return ok
}

// FindClosest resolves a free-text title against the cached titles of a
// collection. The query is normalized, then every candidate is scored with
// the similarity ratio; the best-scoring title wins if it reaches the
// threshold. Candidates are visited in sorted order, and ties keep the first
// candidate seen. Returns ok=false when the collection has no live entry or
// nothing scores high enough.
func (c *TitleCache) FindClosest(collection, title string, threshold float64) (string, bool) {
	candidates := c.CachedTitles(collection)
	if len(candidates) == 0 {
		return "", false
	}

	query := matcher.Normalize(title)

	best := ""
	bestScore := -1.0
	for _, candidate := range candidates {
		if score := matcher.Ratio(candidate, query); score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if bestScore < threshold {
		c.logger.Info("no title close enough",
			"collection", collection, "query", title,
			"best", best, "score", bestScore, "threshold", threshold)
		return "", false
	}

	c.logger.Info("resolved title by similarity",
		"collection", collection, "query", title, "matched", best, "score", bestScore)
	return best, true
}

// Remove drops the cached entry for a collection.
func (c *TitleCache) Remove(collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, collection)
}

// PurgeExpired removes all expired entries and returns how many were
// dropped. Used by the maintenance sweep; normal access purges lazily.
func (c *TitleCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	purged := 0
	for name, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, name)
			purged++
		}
	}
	return purged
}

// Len returns the number of cached collections, including any not yet
// lazily purged.
func (c *TitleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
