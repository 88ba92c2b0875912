package titlecache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for TTL and LRU tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTitleCacheTTL(t *testing.T) {
	clock := newFakeClock()
	cache := New(Options{TTL: time.Hour, Clock: clock.Now})

	cache.AddTitles("papers", []string{"Machine Learning", "Programming Languages"})
	assert.True(t, cache.HasCachedTitles("papers"))

	clock.Advance(time.Hour + time.Second)
	assert.False(t, cache.HasCachedTitles("papers"), "entry should expire after TTL")
	assert.Nil(t, cache.CachedTitles("papers"), "no titles returned after expiry")
}

func TestTitleCacheCapacityEviction(t *testing.T) {
	clock := newFakeClock()
	cache := New(Options{MaxCollections: 3, Clock: clock.Now})

	for i := 0; i < 4; i++ {
		cache.AddTitles(fmt.Sprintf("coll-%d", i), []string{"Title"})
		clock.Advance(time.Second)
	}

	// coll-0 is the least recently used and must be the only one evicted.
	assert.False(t, cache.HasCachedTitles("coll-0"))
	for i := 1; i < 4; i++ {
		assert.True(t, cache.HasCachedTitles(fmt.Sprintf("coll-%d", i)))
	}
}

func TestTitleCacheLRUFollowsAccess(t *testing.T) {
	clock := newFakeClock()
	cache := New(Options{MaxCollections: 2, Clock: clock.Now})

	cache.AddTitles("a", []string{"x"})
	clock.Advance(time.Second)
	cache.AddTitles("b", []string{"y"})
	clock.Advance(time.Second)

	// Touch "a" so "b" becomes least recently used.
	require.True(t, cache.HasCachedTitles("a"))
	clock.Advance(time.Second)

	cache.AddTitles("c", []string{"z"})
	assert.True(t, cache.HasCachedTitles("a"))
	assert.False(t, cache.HasCachedTitles("b"))
	assert.True(t, cache.HasCachedTitles("c"))
}

func TestTitleCacheIdempotentInsert(t *testing.T) {
	cache := New(Options{})
	cache.AddTitles("papers", []string{"Machine Learning", "Machine Learning"})

	titles := cache.CachedTitles("papers")
	require.Len(t, titles, 1, "duplicate titles must collapse into one entry")
	assert.Equal(t, "Machine Learning", titles[0])
}

func TestTitleCacheReplaceOnAdd(t *testing.T) {
	cache := New(Options{})
	cache.AddTitles("papers", []string{"Old Title"})
	cache.AddTitles("papers", []string{"New Title"})

	titles := cache.CachedTitles("papers")
	require.Len(t, titles, 1)
	assert.Equal(t, "New Title", titles[0])
	assert.False(t, cache.Contains("papers", "Old Title"))
}

func TestFindClosestThreshold(t *testing.T) {
	cache := New(Options{})
	cache.AddTitles("papers", []string{"Programming Languages", "Machine Learning"})

	got, ok := cache.FindClosest("papers", "Programing Languges", 0.5)
	require.True(t, ok)
	assert.Equal(t, "Programming Languages", got)

	_, ok = cache.FindClosest("papers", "Programing Languges", 0.99)
	assert.False(t, ok, "near miss must not clear a 0.99 threshold")
}

func TestFindClosestExactBeatsFuzzy(t *testing.T) {
	cache := New(Options{})
	cache.AddTitles("papers", []string{"Machine Learning", "Machine Learnings", "Machine Learner"})

	got, ok := cache.FindClosest("papers", "Machine Learning", 0.99)
	require.True(t, ok)
	assert.Equal(t, "Machine Learning", got, "exact query must resolve to itself")
}

func TestFindClosestMissingCollection(t *testing.T) {
	cache := New(Options{})
	_, ok := cache.FindClosest("nope", "anything", 0.1)
	assert.False(t, ok)
}

func TestFindClosestDeterministicTies(t *testing.T) {
	cache := New(Options{})
	// Two candidates equidistant from the query; sorted iteration makes the
	// lexicographically first one win every time.
	cache.AddTitles("papers", []string{"title b", "title a"})

	for i := 0; i < 5; i++ {
		got, ok := cache.FindClosest("papers", "title x", 0.5)
		require.True(t, ok)
		assert.Equal(t, "title a", got)
	}
}

func TestPurgeExpired(t *testing.T) {
	clock := newFakeClock()
	cache := New(Options{TTL: time.Minute, Clock: clock.Now})

	cache.AddTitles("a", []string{"x"})
	cache.AddTitles("b", []string{"y"})
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 2, cache.PurgeExpired())
	assert.Equal(t, 0, cache.Len())
}
