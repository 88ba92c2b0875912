package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/parser"
	"github.com/fwirtz/amphora/internal/pipeline"
	"github.com/fwirtz/amphora/internal/pool"
	"github.com/fwirtz/amphora/internal/store"
	"github.com/fwirtz/amphora/internal/tasks"
)

// Pool resource types. Embedding pipelines are built without a generator;
// assistant pipelines carry one for answer synthesis.
const (
	PoolTypeEmbedding = "embedding"
	PoolTypeAssistant = "assistant"
)

// PipelineFactory builds a pipeline bound to a collection. The pool calls
// it when no idle instance exists for the requested (type, collection).
type PipelineFactory func(collection string) (*pipeline.Pipeline, error)

// EmbedService processes batch_embed tasks: library files are chunked,
// embedded and written into a collection through a pooled pipeline.
type EmbedService struct {
	library Library
	pool    *pool.Pool[*pipeline.Pipeline]
	factory PipelineFactory
	store   store.Store
	logger  *slog.Logger
}

// NewEmbedService creates the batch-embed handler.
func NewEmbedService(library Library, p *pool.Pool[*pipeline.Pipeline], factory PipelineFactory, docStore store.Store, logger *slog.Logger) *EmbedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedService{
		library: library,
		pool:    p,
		factory: factory,
		store:   docStore,
		logger:  logger,
	}
}

// Handle implements the batch_embed task. Progress moves through fixed
// milestones: 5 after validation, 10 once the pipeline is acquired, up to
// 90 while files are processed.
func (s *EmbedService) Handle(ctx context.Context, task *models.Task, progress tasks.ProgressFunc) (*models.TaskResult, error) {
	collection := task.ParamString("collection", "")
	if collection == "" {
		return nil, fmt.Errorf("collection parameter required")
	}

	chunkOpts := parser.NewChunkOptions(
		task.ParamInt("chunk_size", 1000),
		task.ParamInt("chunk_overlap", 200),
	)
	checkDuplicates := task.ParamBool("check_duplicates", true)
	reset := task.ParamBool("reset_collection", false)

	files := task.Files
	if len(files) == 0 {
		names, err := s.library.ListFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("list library: %w", err)
		}
		for _, name := range names {
			files = append(files, models.FileRef{Filename: name})
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to embed")
	}
	progress(5)

	if reset {
		if _, err := s.store.DeleteCollection(ctx, collection); err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
		s.logger.Info("collection reset", "collection", collection)
	}

	lease, err := s.pool.Acquire(PoolTypeEmbedding, collection, func() (*pipeline.Pipeline, error) {
		return s.factory(collection)
	})
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline: %w", err)
	}
	defer lease.Release()
	pipe := lease.Value()
	progress(10)

	result := &models.TaskResult{Total: len(files)}
	chunksWritten := 0

	for i, file := range files {
		outcome, chunks := s.embedFile(ctx, pipe, file, chunkOpts, checkDuplicates)
		result.Details = append(result.Details, outcome)
		chunksWritten += chunks
		switch outcome.Status {
		case models.ItemSuccess:
			result.SuccessCount++
		case models.ItemSkipped:
			result.SkippedCount++
		default:
			result.ErrorCount++
			s.logger.Warn("embed failed", "file", file.Filename, "error", outcome.Message)
		}
		progress(10 + 80*(i+1)/len(files))
	}
	progress(90)

	result.Message = fmt.Sprintf("%d of %d files embedded into %s", result.SuccessCount, result.Total, collection)
	result.Stats = map[string]any{
		"collection": collection,
		"chunks":     chunksWritten,
	}
	if result.SuccessCount == 0 && result.SkippedCount == 0 {
		return result, fmt.Errorf("all %d files failed", result.Total)
	}
	return result, nil
}

func (s *EmbedService) embedFile(ctx context.Context, pipe *pipeline.Pipeline, file models.FileRef, opts parser.ChunkOptions, checkDuplicates bool) (models.ItemOutcome, int) {
	fail := func(format string, args ...any) models.ItemOutcome {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemError,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	var data []byte
	var err error
	if file.Path != "" {
		data, err = os.ReadFile(file.Path)
	} else {
		data, err = s.library.ReadFile(ctx, file.Filename)
	}
	if err != nil {
		return fail("read: %v", err), 0
	}

	doc, err := parser.ParseMarkdown(string(data))
	if err != nil {
		return fail("parse: %v", err), 0
	}

	title := doc.Title
	if meta, ok, _ := s.library.Meta(ctx, file.Filename); ok && meta.Title != "" {
		title = meta.Title
	}
	if title == "" {
		title = file.Filename
	}

	chunks := parser.ChunkMarkdown(doc, opts)
	if len(chunks) == 0 {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemSkipped,
			Message:  "no embeddable content",
		}, 0
	}

	docs := make([]models.Document, 0, len(chunks))
	for _, chunk := range chunks {
		meta := map[string]any{
			"title":  title,
			"source": file.Filename,
			"chunk":  chunk.Position,
		}
		if chunk.HeadingPath != "" {
			meta["heading_path"] = chunk.HeadingPath
		}
		docs = append(docs, models.Document{Content: chunk.Content, Meta: meta})
	}

	added, err := pipe.AddDocuments(ctx, docs, checkDuplicates)
	if err != nil {
		return fail("embed: %v", err), 0
	}
	if added.Added == 0 {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemSkipped,
			Message:  "already embedded",
		}, 0
	}

	return models.ItemOutcome{
		Filename: file.Filename,
		Status:   models.ItemSuccess,
		Message:  fmt.Sprintf("%d chunks", added.Added),
	}, added.Added
}
