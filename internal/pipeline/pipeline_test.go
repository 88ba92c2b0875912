package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwirtz/amphora/internal/metrics"
	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/store"
)

// fakeEmbedder returns fixed vectors per text so similarity is controlled
// by the test, not by a model.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 3 }

// fakeGenerator records the prompt it was given.
type fakeGenerator struct {
	lastPrompt string
	answer     string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.answer, nil
}

// countingStore counts filter calls to verify document-set caching.
type countingStore struct {
	*store.Memory
	filterCalls int
}

func (c *countingStore) FilterDocuments(ctx context.Context, collection string, filters store.Filters) ([]models.Document, error) {
	c.filterCalls++
	return c.Memory.FilterDocuments(ctx, collection, filters)
}

func doc(content, title, source string) models.Document {
	return models.Document{
		Content: content,
		Meta:    map[string]any{"title": title, "source": source},
	}
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Collection == "" {
		opts.Collection = "papers"
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Embedder == nil {
		opts.Embedder = &fakeEmbedder{}
	}
	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Store: store.NewMemory(), Embedder: &fakeEmbedder{}})
	assert.Error(t, err, "collection required")

	_, err = New(Options{Collection: "c", Embedder: &fakeEmbedder{}})
	assert.Error(t, err, "store required")

	_, err = New(Options{Collection: "c", Store: store.NewMemory()})
	assert.Error(t, err, "embedder required")
}

func TestAddDocumentsEmbedsAndStores(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"alpha text": {0, 1, 0},
	}}
	p := newTestPipeline(t, Options{Store: mem, Embedder: emb})

	result, err := p.AddDocuments(ctx, []models.Document{doc("alpha text", "Alpha", "alpha.md")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Zero(t, result.Skipped)

	stored, err := mem.FilterDocuments(ctx, "papers", nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []float32{0, 1, 0}, stored[0].Embedding)
}

func TestAddDocumentsDuplicateCheck(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	first := []models.Document{
		doc("chunk one", "Alpha", "alpha.md"),
		doc("chunk two", "Alpha", "alpha.md"),
	}
	result, err := p.AddDocuments(ctx, first, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	// Same source again: every chunk from it is skipped.
	again, err := p.AddDocuments(ctx, first, true)
	require.NoError(t, err)
	assert.Zero(t, again.Added)
	assert.Equal(t, 2, again.Skipped)

	// A new source still goes through.
	mixed, err := p.AddDocuments(ctx, []models.Document{
		doc("chunk one", "Alpha", "alpha.md"),
		doc("other", "Beta", "beta.md"),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, mixed.Added)
	assert.Equal(t, 1, mixed.Skipped)
}

func TestAddDocumentsRefreshesTitleCache(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{doc("a", "Alpha", "a.md")}, false)
	require.NoError(t, err)

	titles, err := p.CacheAllTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, titles)

	// Adding a new title must invalidate the warm cache.
	_, err = p.AddDocuments(ctx, []models.Document{doc("b", "Beta", "b.md")}, false)
	require.NoError(t, err)

	titles, err = p.CacheAllTitles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, titles)
}

func TestQueryRanksAndGenerates(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"about cats":      {1, 0, 0},
		"about databases": {0, 1, 0},
		"cats?":           {1, 0.1, 0},
	}}
	gen := &fakeGenerator{answer: "cats are covered"}
	p := newTestPipeline(t, Options{Embedder: emb, Generator: gen, TopK: 1})

	_, err := p.AddDocuments(ctx, []models.Document{
		doc("about cats", "Cats", "cats.md"),
		doc("about databases", "DBs", "dbs.md"),
	}, false)
	require.NoError(t, err)

	result, err := p.Query(ctx, "cats?")
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "about cats", result.Documents[0].Content)
	assert.Equal(t, "cats are covered", result.Answer)
	assert.Contains(t, gen.lastPrompt, "about cats")
	assert.Contains(t, gen.lastPrompt, "cats?")
}

func TestQueryWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{doc("content", "T", "t.md")}, false)
	require.NoError(t, err)

	result, err := p.Query(ctx, "anything")
	require.NoError(t, err)
	assert.Empty(t, result.Answer)
	assert.NotEmpty(t, result.Documents)
}

func TestQueryWithTitleExactMatch(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{
		doc("alpha chunk", "Alpha", "a.md"),
		doc("beta chunk", "Beta", "b.md"),
	}, false)
	require.NoError(t, err)

	result, err := p.QueryWithTitle(ctx, "q", "Alpha", true, 0.5)
	require.NoError(t, err)
	assert.False(t, result.NoMatch)
	assert.False(t, result.SoftMatchUsed)
	assert.Equal(t, "Alpha", result.MatchedTitle)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "alpha chunk", result.Documents[0].Content)
}

func TestQueryWithTitleSoftMatch(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{
		doc("content", "Programming Languages", "pl.md"),
	}, false)
	require.NoError(t, err)

	result, err := p.QueryWithTitle(ctx, "q", "Programing Languges", true, 0.5)
	require.NoError(t, err)
	assert.False(t, result.NoMatch)
	assert.True(t, result.SoftMatchUsed)
	assert.Equal(t, "Programming Languages", result.MatchedTitle)
	assert.Equal(t, "Programing Languges", result.RequestedTitle)
	require.Len(t, result.Documents, 1)
}

func TestQueryWithTitleNoMatch(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{doc("content", "Chemistry", "c.md")}, false)
	require.NoError(t, err)

	// Soft match disabled: unknown title is an explicit empty result.
	result, err := p.QueryWithTitle(ctx, "q", "Astrophysics", false, 0.5)
	require.NoError(t, err)
	assert.True(t, result.NoMatch)
	assert.Empty(t, result.Documents)
	assert.NotEmpty(t, result.Reason)

	// Soft match enabled but nothing close enough.
	result, err = p.QueryWithTitle(ctx, "q", "Astrophysics", true, 0.9)
	require.NoError(t, err)
	assert.True(t, result.NoMatch)
	assert.False(t, result.SoftMatchUsed)
	assert.Empty(t, result.MatchedTitle)
}

func TestQueryWithTitleUsesDocSetCache(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Memory: store.NewMemory()}
	p := newTestPipeline(t, Options{Store: counting})

	_, err := p.AddDocuments(ctx, []models.Document{doc("content", "Alpha", "a.md")}, false)
	require.NoError(t, err)

	_, err = p.QueryWithTitle(ctx, "q", "Alpha", true, 0.5)
	require.NoError(t, err)
	callsAfterFirst := counting.filterCalls

	_, err = p.QueryWithTitle(ctx, "q", "Alpha", true, 0.5)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, counting.filterCalls,
		"second title query should be served from the document-set cache")
}

func TestCacheAllTitlesDeduplicates(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t, Options{})

	_, err := p.AddDocuments(ctx, []models.Document{
		doc("chunk 1", "Alpha", "a.md"),
		doc("chunk 2", "Alpha", "a.md"),
		doc("chunk 3", "Beta", "b.md"),
		{Content: "untitled", Meta: map[string]any{"source": "x.md"}},
	}, false)
	require.NoError(t, err)

	titles, err := p.CacheAllTitles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, titles)
}

func TestSetTemplate(t *testing.T) {
	p := newTestPipeline(t, Options{Template: "precise"})
	assert.Equal(t, "precise", p.TemplateInfo().Key)

	p.SetTemplate("creative")
	assert.Equal(t, "creative", p.TemplateInfo().Key)

	p.SetTemplate("nonsense")
	assert.Equal(t, DefaultTemplate, p.TemplateInfo().Key)
}

func TestTemplateRender(t *testing.T) {
	docs := []models.Document{{Content: "first doc"}, {Content: "second doc"}}
	prompt := Template("precise").Render(docs, "what?")

	assert.Contains(t, prompt, "ONLY on the given context")
	assert.Contains(t, prompt, "first doc")
	assert.Contains(t, prompt, "second doc")
	assert.True(t, strings.HasSuffix(prompt, "Question: what?\nAnswer:"))
}

func TestTemplateFallback(t *testing.T) {
	assert.Equal(t, "balanced", Template("unknown").Key)
	assert.Equal(t, "balanced", Template("").Key)
	assert.Equal(t, "creative", Template("CREATIVE").Key)

	all := Templates()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"balanced", "creative", "precise"},
		[]string{all[0].Key, all[1].Key, all[2].Key})
}

func TestMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	collector := metrics.NewCollector()
	p := newTestPipeline(t, Options{
		Generator: &fakeGenerator{answer: "ok"},
		Metrics:   collector,
	})

	_, err := p.AddDocuments(ctx, []models.Document{
		doc("alpha content", "Alpha", "alpha.md"),
		doc("beta content", "Beta", "beta.md"),
	}, false)
	require.NoError(t, err)

	_, err = p.Query(ctx, "anything")
	require.NoError(t, err)

	snap := collector.Snapshot()
	byOp := map[string]metrics.OperationSnapshot{}
	for _, op := range snap.Operations {
		byOp[op.Op] = op
	}

	assert.Equal(t, int64(1), byOp[metrics.OpEmbed].Count)
	assert.Equal(t, int64(2), byOp[metrics.OpEmbed].Items)
	assert.Equal(t, int64(1), byOp[metrics.OpSearch].Count)
	assert.Equal(t, int64(1), byOp[metrics.OpGenerate].Count)
}
