package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/tasks"
)

// CleanService processes batch_clean tasks: cleanup rules are applied to
// stored library files in place.
type CleanService struct {
	library Library
	cleaner Cleaner
	logger  *slog.Logger
}

// NewCleanService creates the batch-clean handler.
func NewCleanService(library Library, cleaner Cleaner, logger *slog.Logger) *CleanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanService{library: library, cleaner: cleaner, logger: logger}
}

// Handle implements the batch_clean task. Files whose content the rules
// leave untouched are reported as skipped, not as successes.
func (s *CleanService) Handle(ctx context.Context, task *models.Task, progress tasks.ProgressFunc) (*models.TaskResult, error) {
	if s.cleaner == nil {
		return nil, fmt.Errorf("no cleaner configured")
	}

	tags := task.ParamStrings("tags")

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
		return nil, fmt.Errorf("no files to clean")
	}
	progress(5)

	result := &models.TaskResult{Total: len(files)}
	for i, file := range files {
		outcome := s.cleanFile(ctx, file, tags)
		result.Details = append(result.Details, outcome)
		switch outcome.Status {
		case models.ItemSuccess:
			result.SuccessCount++
		case models.ItemSkipped:
			result.SkippedCount++
		default:
			result.ErrorCount++
			s.logger.Warn("clean failed", "file", file.Filename, "error", outcome.Message)
		}
		progress(5 + 90*(i+1)/len(files))
	}

	result.Message = fmt.Sprintf("%d cleaned, %d unchanged of %d files",
		result.SuccessCount, result.SkippedCount, result.Total)
	if result.SuccessCount == 0 && result.SkippedCount == 0 {
		return result, fmt.Errorf("all %d files failed", result.Total)
	}
	return result, nil
}

func (s *CleanService) cleanFile(ctx context.Context, file models.FileRef, tags []string) models.ItemOutcome {
	fail := func(format string, args ...any) models.ItemOutcome {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemError,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	data, err := s.library.ReadFile(ctx, file.Filename)
	if err != nil {
		return fail("read: %v", err)
	}

	fileTags := tags
	meta, hasMeta, err := s.library.Meta(ctx, file.Filename)
	if err != nil {
		return fail("metadata: %v", err)
	}
	if len(fileTags) == 0 && hasMeta {
		fileTags = meta.Tags
	}

	cleaned, err := s.cleaner.Clean(string(data), fileTags)
	if err != nil {
		return fail("clean: %v", err)
	}
	if cleaned == string(data) {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemSkipped,
			Message:  "no rules applied",
		}
	}

	meta.Cleaned = true
	if err := s.library.AddFile(ctx, file.Filename, []byte(cleaned), meta); err != nil {
		return fail("store: %v", err)
	}

	return models.ItemOutcome{
		Filename: file.Filename,
		Status:   models.ItemSuccess,
	}
}
