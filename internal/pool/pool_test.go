package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	id int
}

func newCounter() (func() (*fakePipeline, error), *int) {
	n := 0
	return func() (*fakePipeline, error) {
		n++
		return &fakePipeline{id: n}, nil
	}, &n
}

func TestAcquireReusesReleasedInstance(t *testing.T) {
	p := New[*fakePipeline](Options{})
	construct, built := newCounter()

	first, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	firstInstance := first.Value()
	first.Release()

	second, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	defer second.Release()

	assert.Same(t, firstInstance, second.Value(), "released instance must be reused")
	assert.Equal(t, 1, *built)
	assert.Equal(t, 1, p.Len())
}

func TestAcquireGrowsUnderContention(t *testing.T) {
	p := New[*fakePipeline](Options{})
	construct, built := newCounter()

	first, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	second, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	defer first.Release()
	defer second.Release()

	assert.NotSame(t, first.Value(), second.Value(), "busy instance must not be shared")
	assert.Equal(t, 2, *built)
	assert.Equal(t, 2, p.Len())
}

func TestAcquirePicksMostRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := New[*fakePipeline](Options{Clock: clock.Now})
	construct, _ := newCounter()

	a, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	clock.Advance(time.Second)
	b, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)

	// Release a after b so a carries the later last-used timestamp.
	clock.Advance(time.Second)
	b.Release()
	clock.Advance(time.Second)
	a.Release()

	next, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	defer next.Release()
	assert.Same(t, a.Value(), next.Value(), "most recently used idle instance wins")
}

func TestAcquireSeparatesTypeAndCollection(t *testing.T) {
	p := New[*fakePipeline](Options{})
	construct, built := newCounter()

	rag, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	rag.Release()

	embed, err := p.Acquire("embedding", "papers", construct)
	require.NoError(t, err)
	embed.Release()

	other, err := p.Acquire("rag", "notes", construct)
	require.NoError(t, err)
	other.Release()

	assert.Equal(t, 3, *built, "distinct (type, collection) keys never share instances")
}

func TestReleaseIdempotent(t *testing.T) {
	p := New[*fakePipeline](Options{})
	construct, _ := newCounter()

	lease, err := p.Acquire("rag", "papers", construct)
	require.NoError(t, err)
	lease.Release()
	lease.Release()

	infos := p.List("", "")
	require.Len(t, infos, 1)
	assert.False(t, infos[0].Busy)
}

func TestRemoveAndClear(t *testing.T) {
	p := New[*fakePipeline](Options{})
	construct, _ := newCounter()

	a, _ := p.Acquire("rag", "papers", construct)
	b, _ := p.Acquire("embedding", "papers", construct)
	c, _ := p.Acquire("rag", "notes", construct)
	a.Release()
	b.Release()
	c.Release()

	assert.True(t, p.Remove(a.Name()))
	assert.False(t, p.Remove(a.Name()), "second remove reports absence")

	assert.Equal(t, 1, p.Clear("", "papers"))
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, p.Clear("rag", ""))
	assert.Equal(t, 0, p.Len())
}

func TestSweepIdle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := New[*fakePipeline](Options{MaxIdleAge: time.Minute, Clock: clock.Now})
	construct, _ := newCounter()

	idle, _ := p.Acquire("rag", "papers", construct)
	idle.Release()
	held, _ := p.Acquire("rag", "notes", construct)
	defer held.Release()

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, p.SweepIdle(), "only the idle entry is swept")
	assert.Equal(t, 1, p.Len())
}

func TestSweepIdleDisabledByDefault(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := New[*fakePipeline](Options{Clock: clock.Now})
	construct, _ := newCounter()

	lease, _ := p.Acquire("rag", "papers", construct)
	lease.Release()

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, p.SweepIdle(), "pool never evicts unless MaxIdleAge is set")
	assert.Equal(t, 1, p.Len())
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
