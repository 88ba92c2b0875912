package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fwirtz/amphora/internal/models"
)

// Memory is a Store keeping everything in process memory. It backs unit
// tests and temporary title-scoped document sets; nothing survives restart.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]models.Document
}

var (
	_ Store    = (*Memory)(nil)
	_ Searcher = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]models.Document)}
}

// WriteDocuments appends documents to a collection, creating it on first
// write.
func (m *Memory) WriteDocuments(_ context.Context, collection string, docs []models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], docs...)
	return nil
}

// FilterDocuments returns documents whose metadata matches every filter
// entry. Insertion order is preserved.
func (m *Memory) FilterDocuments(_ context.Context, collection string, filters Filters) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Document
	for _, doc := range m.collections[collection] {
		if matchesFilters(doc, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func matchesFilters(doc models.Document, filters Filters) bool {
	for key, want := range filters {
		if doc.Meta == nil || doc.Meta[key] != want {
			return false
		}
	}
	return true
}

// DeleteCollection removes a collection, reporting whether it existed.
func (m *Memory) DeleteCollection(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return false, nil
	}
	delete(m.collections, name)
	return true, nil
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}

// SearchByEmbedding scores the whole collection by cosine similarity and
// returns the topK closest documents.
func (m *Memory) SearchByEmbedding(_ context.Context, collection string, embedding []float32, topK int) ([]models.Document, error) {
	m.mu.RLock()
	docs := m.collections[collection]
	m.mu.RUnlock()
	return RankByEmbedding(docs, embedding, topK), nil
}

// Collections returns the names of all collections, sorted.
func (m *Memory) Collections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
