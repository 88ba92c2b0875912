// Package service wires task handlers and synchronous queries around the
// document library, the pipeline pool and the background task manager.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileMeta describes one stored library file.
type FileMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Converted   bool     `json:"converted,omitempty"`
	Cleaned     bool     `json:"cleaned,omitempty"`
}

// Library is the markdown file registry that ingest writes into and
// batch-embed reads from.
type Library interface {
	AddFile(ctx context.Context, name string, content []byte, meta FileMeta) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	ListFiles(ctx context.Context) ([]string, error)
	Meta(ctx context.Context, name string) (FileMeta, bool, error)
}

// DirLibrary stores library files in a directory, with per-file metadata
// kept in a single metadata.json alongside them.
type DirLibrary struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	meta map[string]FileMeta
}

var _ Library = (*DirLibrary)(nil)

const libraryMetaFile = "metadata.json"

// NewDirLibrary opens (or creates) a directory-backed library.
func NewDirLibrary(root string, logger *slog.Logger) (*DirLibrary, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	lib := &DirLibrary{root: root, logger: logger, meta: map[string]FileMeta{}}

	data, err := os.ReadFile(filepath.Join(root, libraryMetaFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read library metadata: %w", err)
		}
	} else if err := json.Unmarshal(data, &lib.meta); err != nil {
		// Unparseable metadata loses descriptions but not content
		logger.Warn("library metadata unreadable, starting fresh", "error", err)
		lib.meta = map[string]FileMeta{}
	}

	return lib, nil
}

// AddFile writes (or overwrites) a file and its metadata.
func (l *DirLibrary) AddFile(_ context.Context, name string, content []byte, meta FileMeta) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid library file name %q", name)
	}

	if err := os.WriteFile(filepath.Join(l.root, name), content, 0o644); err != nil {
		return fmt.Errorf("write library file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.meta[name] = meta
	return l.saveMetaLocked()
}

// ReadFile returns the content of a library file.
func (l *DirLibrary) ReadFile(_ context.Context, name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid library file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(l.root, name))
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}
	return data, nil
}

// ListFiles returns the names of all markdown files in the library, sorted.
func (l *DirLibrary) ListFiles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == libraryMetaFile {
			continue
		}
		if filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Meta returns the stored metadata for a file, reporting whether any exists.
func (l *DirLibrary) Meta(_ context.Context, name string) (FileMeta, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	meta, ok := l.meta[name]
	return meta, ok, nil
}

func (l *DirLibrary) saveMetaLocked() error {
	data, err := json.MarshalIndent(l.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library metadata: %w", err)
	}

	path := filepath.Join(l.root, libraryMetaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write library metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace library metadata: %w", err)
	}
	return nil
}
