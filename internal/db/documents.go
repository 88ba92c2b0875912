package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/store"
)

// documentRow is the wire shape of a document record.
type documentRow struct {
	ID         *surrealmodels.RecordID `json:"id,omitempty"`
	Collection string                  `json:"collection"`
	Content    string                  `json:"content"`
	Meta       map[string]any          `json:"meta,omitempty"`
	Embedding  []float32               `json:"embedding,omitempty"`
	Dist       *float64                `json:"dist,omitempty"`
}

func (r documentRow) document() models.Document {
	doc := models.Document{
		Content:   r.Content,
		Meta:      r.Meta,
		Embedding: r.Embedding,
	}
	if r.ID != nil {
		if id, err := models.RecordIDString(*r.ID); err == nil {
			doc.ID = id
		}
	}
	if r.Dist != nil {
		// Cosine distance to similarity score.
		doc.Score = 1 - *r.Dist
	}
	return doc
}

// DocumentStore implements store.Store and store.Searcher on SurrealDB.
// Documents from all collections share one table, discriminated by the
// indexed collection field.
type DocumentStore struct {
	client *Client
}

var (
	_ store.Store    = (*DocumentStore)(nil)
	_ store.Searcher = (*DocumentStore)(nil)
)

// NewDocumentStore creates a document store over an established client.
func NewDocumentStore(client *Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// WriteDocuments appends a batch of documents to a collection.
func (s *DocumentStore) WriteDocuments(ctx context.Context, collection string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, map[string]any{
			"collection": collection,
			"content":    doc.Content,
			"meta":       doc.Meta,
			"embedding":  doc.Embedding,
		})
	}

	_, err := surrealdb.Query[any](ctx, s.client.db, `
		INSERT INTO document $rows
	`, map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("write documents: %w", wrapQueryError(err))
	}
	return nil
}

// FilterDocuments returns documents in a collection matching the metadata
// filters. An empty filter fetches the whole collection.
func (s *DocumentStore) FilterDocuments(ctx context.Context, collection string, filters store.Filters) ([]models.Document, error) {
	sql := "SELECT * FROM document WHERE collection = $collection"
	vars := map[string]any{"collection": collection}

	i := 0
	for key, value := range filters {
		param := fmt.Sprintf("f%d", i)
		sql += fmt.Sprintf(" AND meta[%q] = $%s", key, param)
		vars[param] = value
		i++
	}

	results, err := surrealdb.Query[[]documentRow](ctx, s.client.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("filter documents: %w", wrapQueryError(err))
	}

	var docs []models.Document
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			docs = append(docs, row.document())
		}
	}
	return docs, nil
}

// DeleteCollection removes every document in a collection, reporting false
// when the collection held nothing.
func (s *DocumentStore) DeleteCollection(ctx context.Context, name string) (bool, error) {
	existing, err := s.Count(ctx, name)
	if err != nil {
		return false, err
	}
	if existing == 0 {
		return false, nil
	}

	_, err = surrealdb.Query[any](ctx, s.client.db, `
		DELETE document WHERE collection = $collection
	`, map[string]any{"collection": name})
	if err != nil {
		return false, fmt.Errorf("delete collection: %w", wrapQueryError(err))
	}
	return true, nil
}

// Count returns the number of documents in a collection.
func (s *DocumentStore) Count(ctx context.Context, collection string) (int, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, s.client.db, `
		SELECT count() AS n FROM document WHERE collection = $collection GROUP ALL
	`, map[string]any{"collection": collection})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	switch n := (*results)[0].Result[0]["n"].(type) {
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, nil
}

// Collections returns the distinct collection names present in the store.
func (s *DocumentStore) Collections(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, s.client.db, `
		SELECT collection FROM document GROUP BY collection
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", wrapQueryError(err))
	}

	var names []string
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			if name, ok := row["collection"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// SearchByEmbedding returns the topK documents closest to the query
// embedding using the HNSW index, most relevant first.
func (s *DocumentStore) SearchByEmbedding(ctx context.Context, collection string, embedding []float32, topK int) ([]models.Document, error) {
	if topK <= 0 {
		topK = 5
	}

	// The KNN operator needs a literal K; ef=40 for better recall.
	sql := fmt.Sprintf(`
		SELECT *, vector::distance::knn() AS dist FROM document
		WHERE collection = $collection AND embedding <|%d,40|> $emb
		ORDER BY dist ASC
	`, topK)

	results, err := surrealdb.Query[[]documentRow](ctx, s.client.db, sql, map[string]any{
		"collection": collection,
		"emb":        embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding search: %w", wrapQueryError(err))
	}

	var docs []models.Document
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			docs = append(docs, row.document())
		}
	}
	return docs, nil
}
