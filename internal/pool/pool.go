// Package pool manages long-lived, expensive-to-construct pipeline instances
// keyed by resource type and collection. Instances are reused across
// requests; a busy marker keeps two concurrent operations from reentering
// the same stateful instance. Acquisition hands out a Lease whose Release
// must run on every exit path, typically via defer.
package pool

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Constructor builds a new instance when no idle one is available.
type Constructor[T any] func() (T, error)

type entry[T any] struct {
	name         string
	resourceType string
	collection   string
	createdAt    time.Time
	lastUsed     time.Time
	busy         bool
	instance     T
}

// Info describes one pool entry for listings.
type Info struct {
	Name         string
	ResourceType string
	Collection   string
	CreatedAt    time.Time
	LastUsed     time.Time
	Busy         bool
}

// Options configures a Pool.
type Options struct {
	// MaxIdleAge enables SweepIdle: idle entries unused for longer than
	// this are removed by the maintenance sweep. Zero keeps the default
	// behavior of never evicting automatically.
	MaxIdleAge time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger *slog.Logger
}

// Pool is a registry of pipeline instances. The registry itself is guarded
// by a mutex because it is shared between the task worker and concurrent
// request handlers doing direct synchronous retrieval; constructors run
// outside the lock.
type Pool[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	seq     uint64

	maxIdleAge time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// New creates an empty pool.
func New[T any](opts Options) *Pool[T] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool[T]{
		entries:    make(map[string]*entry[T]),
		maxIdleAge: opts.MaxIdleAge,
		now:        opts.Clock,
		logger:     opts.Logger,
	}
}

// Acquire returns a lease on an instance for (resourceType, collection).
// If an idle matching instance exists, the most recently used one is reused;
// otherwise construct builds a fresh instance, which is registered and
// leased. All matching instances being busy also forces construction rather
// than blocking.
func (p *Pool[T]) Acquire(resourceType, collection string, construct Constructor[T]) (*Lease[T], error) {
	p.mu.Lock()

	var best *entry[T]
	for _, e := range p.entries {
		if e.resourceType != resourceType || e.collection != collection || e.busy {
			continue
		}
		if best == nil || e.lastUsed.After(best.lastUsed) {
			best = e
		}
	}

	if best != nil {
		best.busy = true
		best.lastUsed = p.now()
		p.mu.Unlock()
		p.logger.Debug("reusing pooled instance", "name", best.name)
		return &Lease[T]{pool: p, name: best.name, instance: best.instance}, nil
	}

	// Nothing idle; build a new instance outside the lock. Construction can
	// involve loading an embedding model and must not stall other callers.
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	p.logger.Info("constructing pooled instance",
		"type", resourceType, "collection", collection)
	instance, err := construct()
	if err != nil {
		return nil, fmt.Errorf("construct %s instance for %q: %w", resourceType, collection, err)
	}

	now := p.now()
	e := &entry[T]{
		name:         fmt.Sprintf("%s_%s_%d_%d", collection, resourceType, now.Unix(), seq),
		resourceType: resourceType,
		collection:   collection,
		createdAt:    now,
		lastUsed:     now,
		busy:         true,
		instance:     instance,
	}

	p.mu.Lock()
	p.entries[e.name] = e
	p.mu.Unlock()

	return &Lease[T]{pool: p, name: e.name, instance: instance}, nil
}

// release clears the busy marker for a leased entry. A no-op if the entry
// was removed while leased.
func (p *Pool[T]) release(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[name]; ok {
		e.busy = false
		e.lastUsed = p.now()
	}
}

// Remove deletes an entry by name, reporting whether it existed. Removing a
// leased entry is allowed; the instance lives on until its lease is dropped.
func (p *Pool[T]) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[name]; !ok {
		return false
	}
	delete(p.entries, name)
	return true
}

// Clear removes entries matching the optional type and collection filters
// (empty string matches everything) and returns how many were removed.
func (p *Pool[T]) Clear(resourceType, collection string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for name, e := range p.entries {
		if resourceType != "" && e.resourceType != resourceType {
			continue
		}
		if collection != "" && e.collection != collection {
			continue
		}
		delete(p.entries, name)
		removed++
	}
	return removed
}

// List returns entries matching the optional type and collection filters,
// most recently used first.
func (p *Pool[T]) List(resourceType, collection string) []Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	var infos []Info
	for _, e := range p.entries {
		if resourceType != "" && e.resourceType != resourceType {
			continue
		}
		if collection != "" && e.collection != collection {
			continue
		}
		infos = append(infos, Info{
			Name:         e.name,
			ResourceType: e.resourceType,
			Collection:   e.collection,
			CreatedAt:    e.createdAt,
			LastUsed:     e.lastUsed,
			Busy:         e.busy,
		})
	}
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && infos[j].LastUsed.After(infos[j-1].LastUsed); j-- {
			infos[j], infos[j-1] = infos[j-1], infos[j]
		}
	}
	return infos
}

// SweepIdle removes idle entries unused for longer than MaxIdleAge and
// returns how many were dropped. A no-op when MaxIdleAge is zero, which is
// the default: the pool only grows unless a policy is configured.
func (p *Pool[T]) SweepIdle() int {
	if p.maxIdleAge <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.maxIdleAge)
	removed := 0
	for name, e := range p.entries {
		if !e.busy && e.lastUsed.Before(cutoff) {
			delete(p.entries, name)
			removed++
		}
	}
	if removed > 0 {
		p.logger.Info("swept idle pooled instances", "removed", removed)
	}
	return removed
}

// Len returns the number of registered entries.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Lease is a held claim on a pooled instance. Callers must Release on every
// exit path; an unreleased lease leaves the entry busy forever.
type Lease[T any] struct {
	pool     *Pool[T]
	name     string
	instance T
	once     sync.Once
}

// Value returns the leased instance.
func (l *Lease[T]) Value() T { return l.instance }

// Name returns the pool entry name backing this lease.
func (l *Lease[T]) Name() string { return l.name }

// Release returns the instance to the pool. Safe to call more than once.
func (l *Lease[T]) Release() {
	l.once.Do(func() {
		l.pool.release(l.name)
	})
}
