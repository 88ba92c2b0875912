package store

import (
	"math"
	"sort"

	"github.com/fwirtz/amphora/internal/models"
)

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankByEmbedding scores docs against a query embedding and returns the
// topK most similar, highest score first. Documents without embeddings
// rank last. The input slice is not modified.
func RankByEmbedding(docs []models.Document, embedding []float32, topK int) []models.Document {
	ranked := make([]models.Document, len(docs))
	copy(ranked, docs)
	for i := range ranked {
		ranked[i].Score = Cosine(ranked[i].Embedding, embedding)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
