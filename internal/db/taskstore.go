package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/tasks"
)

// taskRow is the wire shape of a task record. Task state is snapshotted
// wholesale on every transition, so rows map one-to-one onto models.Task.
type taskRow struct {
	ID          *surrealmodels.RecordID `json:"id,omitempty"`
	TaskID      string                  `json:"task_id"`
	TaskType    models.TaskType         `json:"task_type"`
	Status      models.TaskStatus       `json:"status"`
	Progress    int                     `json:"progress"`
	Files       []models.FileRef        `json:"files,omitempty"`
	Params      map[string]any          `json:"params,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Result      *models.TaskResult      `json:"result,omitempty"`
}

func (r taskRow) task() *models.Task {
	return &models.Task{
		ID:          r.TaskID,
		Type:        r.TaskType,
		Status:      r.Status,
		Progress:    r.Progress,
		Files:       r.Files,
		Params:      r.Params,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Error:       r.Error,
		Result:      r.Result,
	}
}

// TaskStore persists the task list in SurrealDB instead of a local JSON
// file, so task history survives host moves.
type TaskStore struct {
	client *Client
}

var _ tasks.Store = (*TaskStore)(nil)

// NewTaskStore creates a task store over an established client.
func NewTaskStore(client *Client) *TaskStore {
	return &TaskStore{client: client}
}

// Load reads all persisted tasks.
func (s *TaskStore) Load(ctx context.Context) ([]*models.Task, error) {
	results, err := surrealdb.Query[[]taskRow](ctx, s.client.db, `
		SELECT * FROM task ORDER BY created_at ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", wrapQueryError(err))
	}

	var loaded []*models.Task
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			loaded = append(loaded, row.task())
		}
	}
	return loaded, nil
}

// Save replaces the persisted task list with the given snapshot.
func (s *TaskStore) Save(ctx context.Context, list []*models.Task) error {
	rows := make([]map[string]any, 0, len(list))
	for _, t := range list {
		rows = append(rows, map[string]any{
			"id":           surrealmodels.NewRecordID("task", t.ID),
			"task_id":      t.ID,
			"task_type":    t.Type,
			"status":       t.Status,
			"progress":     t.Progress,
			"files":        t.Files,
			"params":       t.Params,
			"created_at":   t.CreatedAt,
			"started_at":   t.StartedAt,
			"completed_at": t.CompletedAt,
			"error":        t.Error,
			"result":       t.Result,
		})
	}

	_, err := surrealdb.Query[any](ctx, s.client.db, `
		BEGIN TRANSACTION;
		DELETE task;
		INSERT INTO task $rows;
		COMMIT TRANSACTION;
	`, map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("save tasks: %w", wrapQueryError(err))
	}
	return nil
}
