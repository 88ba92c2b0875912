package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwirtz/amphora/internal/pipeline"
	"github.com/fwirtz/amphora/internal/pool"
)

// QueryService answers questions synchronously through pooled assistant
// pipelines, bypassing the task queue.
type QueryService struct {
	pool    *pool.Pool[*pipeline.Pipeline]
	factory PipelineFactory
	logger  *slog.Logger
}

// NewQueryService creates a query service. The factory should build
// pipelines with a generator attached; retrieval-only factories work too
// and simply yield empty answers.
func NewQueryService(p *pool.Pool[*pipeline.Pipeline], factory PipelineFactory, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{pool: p, factory: factory, logger: logger}
}

// QueryOptions refine a query.
type QueryOptions struct {
	// Title restricts retrieval to one document title.
	Title string
	// SoftMatch allows fuzzy title resolution when Title has no exact match.
	SoftMatch bool
	// Threshold is the minimum similarity for soft matches.
	Threshold float64
	// Template overrides the pipeline's prompt template for this query.
	Template string
}

// Query runs a question against a collection. The result always reports
// how the title was resolved; without a Title option those fields stay
// empty.
func (s *QueryService) Query(ctx context.Context, collection, query string, opts QueryOptions) (*pipeline.TitleQueryResult, error) {
	lease, err := s.pool.Acquire(PoolTypeAssistant, collection, func() (*pipeline.Pipeline, error) {
		return s.factory(collection)
	})
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline: %w", err)
	}
	defer lease.Release()
	pipe := lease.Value()

	if opts.Template != "" {
		pipe.SetTemplate(opts.Template)
	}

	if opts.Title != "" {
		return pipe.QueryWithTitle(ctx, query, opts.Title, opts.SoftMatch, opts.Threshold)
	}

	result, err := pipe.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return &pipeline.TitleQueryResult{QueryResult: *result}, nil
}

// Titles returns the known document titles of a collection, warming the
// title cache on first use.
func (s *QueryService) Titles(ctx context.Context, collection string) ([]string, error) {
	lease, err := s.pool.Acquire(PoolTypeAssistant, collection, func() (*pipeline.Pipeline, error) {
		return s.factory(collection)
	})
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline: %w", err)
	}
	defer lease.Release()

	return lease.Value().CacheAllTitles(ctx)
}
