package models

import "time"

// TaskStatus represents the lifecycle state of a background task.
// Transitions are monotonic: pending -> processing -> completed|failed.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskType identifies which handler processes a task.
type TaskType string

const (
	// TaskFileIngest converts and registers uploaded files.
	TaskFileIngest TaskType = "file_ingest"

	// TaskBatchEmbed chunks and embeds files into a collection.
	TaskBatchEmbed TaskType = "batch_embed"

	// TaskBatchClean applies Markdown cleaning rules to stored files.
	TaskBatchClean TaskType = "batch_clean"
)

// FileRef names one file a task operates on. Path points at the staged
// copy on disk; Filename is the user-facing name used in outcome reports.
type FileRef struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// ItemStatus classifies the outcome of a single item within a batch task.
const (
	ItemSuccess = "success"
	ItemSkipped = "skipped"
	ItemError   = "error"
)

// ItemOutcome is the per-item result of a batch operation. A failing item
// never aborts the batch; it is reported here instead.
type ItemOutcome struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// TaskResult is the structured output of a completed task.
type TaskResult struct {
	Total        int            `json:"total"`
	SuccessCount int            `json:"success_count"`
	SkippedCount int            `json:"skipped_count,omitempty"`
	ErrorCount   int            `json:"error_count"`
	Message      string         `json:"message,omitempty"`
	Details      []ItemOutcome  `json:"details,omitempty"`
	Stats        map[string]any `json:"stats,omitempty"`
}

// Task represents one unit of deferred work owned by the task worker.
type Task struct {
	ID          string         `json:"task_id"`
	Type        TaskType       `json:"task_type"`
	Status      TaskStatus     `json:"status"`
	Progress    int            `json:"progress"`
	Files       []FileRef      `json:"files,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      *TaskResult    `json:"result,omitempty"`
}

// ParamString returns a string task parameter, or def if absent.
func (t *Task) ParamString(key, def string) string {
	if v, ok := t.Params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// ParamBool returns a boolean task parameter, or def if absent.
// Accepts bools and the form-style strings "on"/"off".
func (t *Task) ParamBool(key string, def bool) bool {
	switch v := t.Params[key].(type) {
	case bool:
		return v
	case string:
		if v == "on" {
			return true
		}
		if v == "off" {
			return false
		}
	}
	return def
}

// ParamInt returns an integer task parameter, or def if absent.
// JSON round-trips store numbers as float64, so both are accepted.
func (t *Task) ParamInt(key string, def int) int {
	switch v := t.Params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// ParamStrings returns a string-slice task parameter.
func (t *Task) ParamStrings(key string) []string {
	switch v := t.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a deep-enough copy safe to hand out across goroutines.
// Params and result details are copied shallowly; callers treat them as
// read-only.
func (t *Task) Clone() *Task {
	c := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	c.Files = append([]FileRef(nil), t.Files...)
	return &c
}
