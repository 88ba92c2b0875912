// Package models defines data structures for the Amphora document assistant.
package models

// Document is the unit stored in and retrieved from a collection.
// Meta carries free-form metadata; the "title" key identifies which
// source document a chunk belongs to and drives title-scoped retrieval.
type Document struct {
	ID        string         `json:"id,omitempty"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`

	// Score is the relevance score assigned during retrieval.
	// Zero for documents that were never ranked.
	Score float64 `json:"score,omitempty"`
}

// Title returns the canonical title from document metadata, or "" if unset.
func (d Document) Title() string {
	if d.Meta == nil {
		return ""
	}
	if t, ok := d.Meta["title"].(string); ok {
		return t
	}
	return ""
}

// Source returns the source path from document metadata, or "" if unset.
func (d Document) Source() string {
	if d.Meta == nil {
		return ""
	}
	if s, ok := d.Meta["source"].(string); ok {
		return s
	}
	return ""
}

// MetaString returns a string metadata value by key.
func (d Document) MetaString(key string) (string, bool) {
	if d.Meta == nil {
		return "", false
	}
	s, ok := d.Meta[key].(string)
	return s, ok
}
