package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwirtz/amphora/internal/models"
)

// Store persists the full task list after every state transition so tasks
// survive process restart.
type Store interface {
	Load(ctx context.Context) ([]*models.Task, error)
	Save(ctx context.Context, tasks []*models.Task) error
}

// ErrCorruptState reports that persisted task state failed to parse. The
// manager treats this as data loss for that record set and starts empty.
var ErrCorruptState = errors.New("corrupt task state")

// FileStore persists tasks as a single JSON document on disk. This is the
// default store; a database-backed alternative lives in internal/db.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store writing to path, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create task storage dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the persisted task list. A missing file yields an empty list;
// unparseable content yields ErrCorruptState.
func (s *FileStore) Load(_ context.Context) ([]*models.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read task state: %w", err)
	}

	var tasks []*models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	return tasks, nil
}

// Save writes the task list atomically via a temp file rename.
func (s *FileStore) Save(_ context.Context, tasks []*models.Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode task state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write task state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace task state: %w", err)
	}
	return nil
}
