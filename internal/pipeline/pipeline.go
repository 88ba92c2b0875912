// Package pipeline implements the retrieval pipeline that pool entries are
// made of: one pipeline binds a collection to a document store, an embedder
// and optionally a generator.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwirtz/amphora/internal/embedding"
	"github.com/fwirtz/amphora/internal/metrics"
	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/store"
	"github.com/fwirtz/amphora/internal/titlecache"
)

// DocumentStore is what a pipeline needs from its backing store.
type DocumentStore interface {
	store.Store
	store.Searcher
}

// Generator produces an answer from a rendered prompt. *llm.Model
// satisfies this; retrieval-only pipelines leave it nil.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Collection string
	Store      DocumentStore
	Embedder   embedding.Embedder

	// Generator is optional; without one, queries return documents only.
	Generator Generator

	// TopK limits retrieval result size, default 5.
	TopK int

	// Template names the prompt template, default balanced.
	Template string

	// Titles and DocSets are shared caches. Fresh private instances are
	// created when nil, which disables cross-pipeline sharing but keeps
	// single-pipeline use working.
	Titles  *titlecache.TitleCache
	DocSets *titlecache.DocSetCache

	// Metrics receives operation timings; nil disables collection.
	Metrics *metrics.Collector

	Logger *slog.Logger
}

// Pipeline answers queries against one collection.
type Pipeline struct {
	collection string
	store      DocumentStore
	embedder   embedding.Embedder
	generator  Generator
	topK       int
	template   PromptTemplate
	titles     *titlecache.TitleCache
	docsets    *titlecache.DocSetCache
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New creates a pipeline. Collection, Store and Embedder are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	titles := opts.Titles
	if titles == nil {
		titles = titlecache.New(titlecache.Options{})
	}
	docsets := opts.DocSets
	if docsets == nil {
		docsets = titlecache.NewDocSetCache(0, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		collection: opts.Collection,
		store:      opts.Store,
		embedder:   opts.Embedder,
		generator:  opts.Generator,
		topK:       topK,
		template:   Template(opts.Template),
		titles:     titles,
		docsets:    docsets,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// Collection returns the collection this pipeline is bound to.
func (p *Pipeline) Collection() string {
	return p.collection
}

// SetTemplate switches the prompt template; unknown names fall back to the
// balanced default.
func (p *Pipeline) SetTemplate(name string) {
	p.template = Template(name)
}

// TemplateInfo returns the active prompt template.
func (p *Pipeline) TemplateInfo() PromptTemplate {
	return p.template
}

// AddResult reports the outcome of AddDocuments.
type AddResult struct {
	Added   int
	Skipped int
}

// AddDocuments embeds and stores documents. With checkDuplicates, source
// groups already present in the collection are skipped instead of written
// twice.
func (p *Pipeline) AddDocuments(ctx context.Context, docs []models.Document, checkDuplicates bool) (*AddResult, error) {
	result := &AddResult{}
	if len(docs) == 0 {
		return result, nil
	}

	keep := docs
	if checkDuplicates {
		keep = keep[:0:0]
		seen := map[string]bool{}
		for _, doc := range docs {
			source := doc.Source()
			dup, known := seen[source]
			if !known {
				existing, err := p.store.FilterDocuments(ctx, p.collection, store.Filters{"source": source})
				if err != nil {
					return nil, fmt.Errorf("duplicate check: %w", err)
				}
				dup = len(existing) > 0
				seen[source] = dup
				if dup {
					p.logger.Info("skipping duplicate documents", "collection", p.collection, "source", source)
				}
			}
			if dup {
				result.Skipped++
				continue
			}
			keep = append(keep, doc)
		}
		if len(keep) == 0 {
			return result, nil
		}
	}

	texts := make([]string, len(keep))
	for i, doc := range keep {
		texts[i] = doc.Content
	}
	start := time.Now()
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	p.metrics.RecordBatch(metrics.OpEmbed, time.Since(start), int64(len(keep)))
	for i := range keep {
		keep[i].Embedding = embeddings[i]
	}

	if err := p.store.WriteDocuments(ctx, p.collection, keep); err != nil {
		return nil, fmt.Errorf("store documents: %w", err)
	}
	result.Added = len(keep)

	// Stored titles changed; cached views are stale now.
	p.titles.Remove(p.collection)
	for _, doc := range keep {
		if title := doc.Title(); title != "" {
			p.docsets.Invalidate(p.docsetKey(title))
		}
	}

	p.logger.Info("documents added",
		"collection", p.collection,
		"added", result.Added,
		"skipped", result.Skipped)
	return result, nil
}

// QueryResult is the outcome of a retrieval query.
type QueryResult struct {
	// Answer is empty when the pipeline has no generator.
	Answer    string
	Documents []models.Document
}

// Query embeds the query, retrieves the topK closest documents and, when a
// generator is configured, synthesizes an answer from them.
func (p *Pipeline) Query(ctx context.Context, query string) (*QueryResult, error) {
	emb, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	start := time.Now()
	docs, err := p.store.SearchByEmbedding(ctx, p.collection, emb, p.topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	p.metrics.RecordBatch(metrics.OpSearch, time.Since(start), int64(len(docs)))

	result := &QueryResult{Documents: docs}
	if p.generator != nil {
		answer, err := p.generate(ctx, docs, query)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	}
	return result, nil
}

// generate renders the prompt and runs the generator with timing.
func (p *Pipeline) generate(ctx context.Context, docs []models.Document, query string) (string, error) {
	start := time.Now()
	answer, err := p.generator.Generate(ctx, p.template.Render(docs, query))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	p.metrics.RecordTiming(metrics.OpGenerate, time.Since(start))
	return answer, nil
}

// TitleQueryResult is the outcome of a title-scoped query. NoMatch results
// carry an empty document list and a reason instead of an error.
type TitleQueryResult struct {
	QueryResult

	RequestedTitle string
	MatchedTitle   string
	SoftMatchUsed  bool
	NoMatch        bool
	Reason         string
}

// QueryWithTitle restricts retrieval to documents of one title. An exact
// title match is tried first; with softMatch enabled, the closest cached
// title at or above threshold is used instead. When neither matches, the
// result is explicitly empty rather than falling back to the whole
// collection.
func (p *Pipeline) QueryWithTitle(ctx context.Context, query, title string, softMatch bool, threshold float64) (*TitleQueryResult, error) {
	if _, err := p.CacheAllTitles(ctx); err != nil {
		return nil, err
	}

	result := &TitleQueryResult{RequestedTitle: title}

	actual := title
	if !p.titles.Contains(p.collection, title) {
		if !softMatch {
			result.NoMatch = true
			result.Reason = fmt.Sprintf("no documents titled %q", title)
			return result, nil
		}
		closest, ok := p.titles.FindClosest(p.collection, title, threshold)
		if !ok {
			p.logger.Warn("no matching title",
				"collection", p.collection,
				"title", title,
				"threshold", threshold)
			result.NoMatch = true
			result.Reason = fmt.Sprintf("no title similar enough to %q", title)
			return result, nil
		}
		p.logger.Info("soft title match", "requested", title, "matched", closest)
		actual = closest
		result.SoftMatchUsed = true
	}

	docs, err := p.docsets.GetOrBuild(p.docsetKey(actual), func() ([]models.Document, error) {
		return p.store.FilterDocuments(ctx, p.collection, store.Filters{"title": actual})
	})
	if err != nil {
		return nil, fmt.Errorf("load documents for title: %w", err)
	}
	if len(docs) == 0 {
		result.SoftMatchUsed = false
		result.NoMatch = true
		result.Reason = fmt.Sprintf("no documents titled %q", actual)
		return result, nil
	}
	result.MatchedTitle = actual

	emb, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	result.Documents = store.RankByEmbedding(docs, emb, p.topK)

	if p.generator != nil {
		answer, err := p.generate(ctx, result.Documents, query)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	}
	return result, nil
}

// CacheAllTitles fills the title cache from stored document metadata and
// returns the distinct titles. A warm cache is returned as-is.
func (p *Pipeline) CacheAllTitles(ctx context.Context) ([]string, error) {
	if p.titles.HasCachedTitles(p.collection) {
		return p.titles.CachedTitles(p.collection), nil
	}

	docs, err := p.store.FilterDocuments(ctx, p.collection, nil)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}

	unique := map[string]struct{}{}
	var titles []string
	for _, doc := range docs {
		title := doc.Title()
		if title == "" {
			continue
		}
		if _, ok := unique[title]; !ok {
			unique[title] = struct{}{}
			titles = append(titles, title)
		}
	}

	p.titles.AddTitles(p.collection, titles)
	p.logger.Debug("title cache filled", "collection", p.collection, "titles", len(titles))
	return p.titles.CachedTitles(p.collection), nil
}

// docsetKey namespaces document-set cache entries per collection, since
// the cache instance is shared across pipelines.
func (p *Pipeline) docsetKey(title string) string {
	return p.collection + "::" + title
}
