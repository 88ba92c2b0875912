// Package store defines the document store boundary. The underlying vector
// store engine is an external collaborator; this package specifies the
// narrow surface the core needs and provides an in-memory implementation
// used for title-scoped subsets and tests.
package store

import (
	"context"

	"github.com/fwirtz/amphora/internal/models"
)

// Filters selects documents by equality over metadata fields. An empty (or
// nil) filter matches every document in the collection.
type Filters map[string]any

// Store is the persistence surface for collections of documents.
type Store interface {
	// WriteDocuments appends a batch of documents to a collection.
	WriteDocuments(ctx context.Context, collection string, docs []models.Document) error

	// FilterDocuments returns documents matching the metadata filters.
	FilterDocuments(ctx context.Context, collection string, filters Filters) ([]models.Document, error)

	// DeleteCollection removes a named collection and everything in it.
	// Reports false when the collection does not exist.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)
}

// Searcher is implemented by stores with native vector search. Stores
// without it are ranked client-side instead.
type Searcher interface {
	// SearchByEmbedding returns the topK documents closest to the query
	// embedding, most relevant first, with scores populated.
	SearchByEmbedding(ctx context.Context, collection string, embedding []float32, topK int) ([]models.Document, error)
}
