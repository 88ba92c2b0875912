package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/parser"
	"github.com/fwirtz/amphora/internal/tasks"
)

// ConvertResult is what a Converter produced from a source file.
type ConvertResult struct {
	Markdown string
	// Title extracted by the converter, may be empty.
	Title string
}

// Converter turns an uploaded source file (PDF) into markdown.
type Converter interface {
	Convert(ctx context.Context, path string) (*ConvertResult, error)
}

// Cleaner applies markdown cleanup rules selected by tags. Returning the
// input unchanged means no rule applied.
type Cleaner interface {
	Clean(content string, tags []string) (string, error)
}

// IngestService processes file_ingest tasks: staged uploads are converted,
// optionally cleaned, and registered in the library.
type IngestService struct {
	library   Library
	converter Converter
	cleaner   Cleaner
	logger    *slog.Logger
}

// NewIngestService creates the ingest handler. Converter and cleaner are
// optional; without them PDF conversion and cleaning report per-file errors
// instead of failing the whole task.
func NewIngestService(library Library, converter Converter, cleaner Cleaner, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		library:   library,
		converter: converter,
		cleaner:   cleaner,
		logger:    logger,
	}
}

// Handle implements the file_ingest task. One failing file never aborts the
// batch; a task with at least one success completes with the failures listed
// in the result details.
func (s *IngestService) Handle(ctx context.Context, task *models.Task, progress tasks.ProgressFunc) (*models.TaskResult, error) {
	if len(task.Files) == 0 {
		return nil, fmt.Errorf("no files to ingest")
	}

	tags := task.ParamStrings("tags")
	cleanMD := task.ParamBool("clean_md", false)
	description := task.ParamString("description", "")

	progress(5)

	result := &models.TaskResult{Total: len(task.Files)}
	for i, file := range task.Files {
		outcome := s.ingestFile(ctx, file, tags, cleanMD, description)
		result.Details = append(result.Details, outcome)
		switch outcome.Status {
		case models.ItemSuccess:
			result.SuccessCount++
		default:
			result.ErrorCount++
			s.logger.Warn("file ingest failed", "file", file.Filename, "error", outcome.Message)
		}
		progress(5 + 90*(i+1)/len(task.Files))
	}

	result.Message = fmt.Sprintf("%d of %d files ingested", result.SuccessCount, result.Total)
	if result.SuccessCount == 0 {
		return result, fmt.Errorf("all %d files failed", result.Total)
	}
	return result, nil
}

func (s *IngestService) ingestFile(ctx context.Context, file models.FileRef, tags []string, cleanMD bool, description string) models.ItemOutcome {
	fail := func(format string, args ...any) models.ItemOutcome {
		return models.ItemOutcome{
			Filename: file.Filename,
			Status:   models.ItemError,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	if _, err := os.Stat(file.Path); err != nil {
		return fail("file not found: %s", file.Path)
	}

	var content, title string
	converted := false

	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".pdf":
		if s.converter == nil {
			return fail("no PDF converter configured")
		}
		res, err := s.converter.Convert(ctx, file.Path)
		if err != nil {
			return fail("convert: %v", err)
		}
		content = res.Markdown
		title = res.Title
		converted = true

	default:
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return fail("read: %v", err)
		}
		content = string(data)
	}

	if title == "" {
		if doc, err := parser.ParseMarkdown(content); err == nil {
			title = doc.Title
		}
	}
	baseName := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	if title == "" {
		title = baseName
	}

	safe := models.SafeTitle(title)
	if safe == "" {
		safe = models.SafeTitle(baseName)
		s.logger.Warn("title unusable as filename, using base name",
			"file", file.Filename, "title", title)
	}

	cleaned := false
	if cleanMD && s.cleaner != nil {
		if out, err := s.cleaner.Clean(content, tags); err != nil {
			// Cleaning is best-effort; store the original
			s.logger.Warn("markdown cleaning failed", "file", file.Filename, "error", err)
		} else if out != content {
			content = out
			cleaned = true
		}
	}

	if description == "" && converted {
		description = "converted from PDF"
	}

	name := safe + ".md"
	err := s.library.AddFile(ctx, name, []byte(content), FileMeta{
		Title:       title,
		Description: description,
		Tags:        tags,
		Converted:   converted,
		Cleaned:     cleaned,
	})
	if err != nil {
		return fail("store: %v", err)
	}

	return models.ItemOutcome{
		Filename: file.Filename,
		Status:   models.ItemSuccess,
		Message:  fmt.Sprintf("stored as %s", name),
	}
}
