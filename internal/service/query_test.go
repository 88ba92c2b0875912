package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/pipeline"
	"github.com/fwirtz/amphora/internal/pool"
	"github.com/fwirtz/amphora/internal/store"
)

type recordingGenerator struct {
	lastPrompt string
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	return "generated answer", nil
}

func seededQueryService(t *testing.T) (*QueryService, *pool.Pool[*pipeline.Pipeline], *recordingGenerator) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	docs := []models.Document{
		{
			Content:   "Go favors composition over inheritance.",
			Embedding: []float32{1, 0, 0},
			Meta:      map[string]any{"title": "Go Proverbs", "source": "proverbs.md"},
		},
		{
			Content:   "Rust enforces ownership at compile time.",
			Embedding: []float32{0, 1, 0},
			Meta:      map[string]any{"title": "Rust Notes", "source": "rust.md"},
		},
	}
	require.NoError(t, mem.WriteDocuments(ctx, "langs", docs))

	gen := &recordingGenerator{}
	factory := func(collection string) (*pipeline.Pipeline, error) {
		return pipeline.New(pipeline.Options{
			Collection: collection,
			Store:      mem,
			Embedder:   fixedEmbedder{},
			Generator:  gen,
		})
	}
	p := pool.New[*pipeline.Pipeline](pool.Options{})
	return NewQueryService(p, factory, nil), p, gen
}

func TestQueryGeneratesAnswer(t *testing.T) {
	svc, _, gen := seededQueryService(t)

	result, err := svc.Query(context.Background(), "langs", "what does Go favor?", QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, "generated answer", result.Answer)
	require.NotEmpty(t, result.Documents)
	assert.Equal(t, "Go Proverbs", result.Documents[0].Title(), "closest embedding ranks first")
	assert.Contains(t, gen.lastPrompt, "what does Go favor?")
	assert.Empty(t, result.RequestedTitle)
	assert.False(t, result.NoMatch)
}

func TestQueryWithExactTitle(t *testing.T) {
	svc, _, _ := seededQueryService(t)

	result, err := svc.Query(context.Background(), "langs", "ownership?", QueryOptions{
		Title: "Rust Notes",
	})
	require.NoError(t, err)

	assert.Equal(t, "Rust Notes", result.MatchedTitle)
	assert.False(t, result.SoftMatchUsed)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "rust.md", result.Documents[0].Source())
}

func TestQueryWithSoftTitleMatch(t *testing.T) {
	svc, _, _ := seededQueryService(t)

	result, err := svc.Query(context.Background(), "langs", "ownership?", QueryOptions{
		Title:     "Rust Nots",
		SoftMatch: true,
		Threshold: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "Rust Nots", result.RequestedTitle)
	assert.Equal(t, "Rust Notes", result.MatchedTitle)
	assert.True(t, result.SoftMatchUsed)
	assert.False(t, result.NoMatch)
}

func TestQueryUnknownTitle(t *testing.T) {
	svc, _, _ := seededQueryService(t)

	result, err := svc.Query(context.Background(), "langs", "anything", QueryOptions{
		Title: "No Such Title",
	})
	require.NoError(t, err)

	assert.True(t, result.NoMatch)
	assert.Empty(t, result.Documents)
	assert.NotEmpty(t, result.Reason)
}

func TestQueryReusesPooledPipeline(t *testing.T) {
	svc, p, _ := seededQueryService(t)
	ctx := context.Background()

	_, err := svc.Query(ctx, "langs", "first", QueryOptions{})
	require.NoError(t, err)
	_, err = svc.Query(ctx, "langs", "second", QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Len(), "same (type, collection) reuses one pipeline")
}

func TestQueryTemplateOverride(t *testing.T) {
	svc, _, gen := seededQueryService(t)

	_, err := svc.Query(context.Background(), "langs", "question", QueryOptions{
		Template: "creative",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, gen.lastPrompt)
}

func TestTitlesListsCollection(t *testing.T) {
	svc, _, _ := seededQueryService(t)

	titles, err := svc.Titles(context.Background(), "langs")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Go Proverbs", "Rust Notes"}, titles)
}
