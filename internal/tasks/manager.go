// Package tasks implements the serialized background task queue: a FIFO
// queue drained by exactly one worker goroutine, with the full task list
// persisted after every state transition. Producers only enqueue; task
// bodies never run inline in a request path.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fwirtz/amphora/internal/models"
)

// ProgressFunc lets handlers report completion percentage. Updates are
// clamped to [0, 100] and never move backwards.
type ProgressFunc func(percent int)

// Handler executes one task type. A returned error fails the task; a
// returned result accompanies either outcome, so a handler can report
// partial per-item results even when it fails. Partial success (some items
// failed but the batch ran) is a completed task whose result lists the
// failures, not an error.
type Handler func(ctx context.Context, task *models.Task, progress ProgressFunc) (*models.TaskResult, error)

var (
	// ErrTaskNotFound reports an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskProcessing rejects deleting a task the worker currently owns.
	ErrTaskProcessing = errors.New("task is processing")

	// ErrUnknownTaskType reports a submit or dequeue for an unregistered type.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrInterrupted marks tasks found in the processing state at startup:
	// the previous process died mid-task and the work is not resumed.
	ErrInterrupted = errors.New("interrupted by restart")
)

// Options configures a Manager.
type Options struct {
	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger *slog.Logger
}

// Manager owns the task registry, the FIFO queue, and the single worker.
// Submit, reads, and Delete are safe for arbitrary concurrent producers;
// the queue itself is the serialization point for execution.
type Manager struct {
	mu       sync.RWMutex
	tasks    map[string]*models.Task
	pending  []string // FIFO of task IDs awaiting the worker
	current  string   // ID of the task the worker owns, "" when idle
	handlers map[models.TaskType]Handler

	wake  chan struct{}
	stopc chan struct{}
	wg    sync.WaitGroup

	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a manager persisting through store.
func NewManager(store Store, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		tasks:    make(map[string]*models.Task),
		handlers: make(map[models.TaskType]Handler),
		wake:     make(chan struct{}, 1),
		stopc:    make(chan struct{}),
		store:    store,
		now:      opts.Clock,
		logger:   opts.Logger,
	}
}

// Register installs the handler for a task type. Must be called before
// Start.
func (m *Manager) Register(taskType models.TaskType, h Handler) {
	m.handlers[taskType] = h
}

// Start loads persisted tasks and launches the worker goroutine.
//
// Tasks persisted as processing were interrupted by a crash; they are
// marked failed rather than resumed, since the handler may have partially
// written side effects. Tasks persisted as pending are re-enqueued in
// creation order. Corrupt persisted state is treated as data loss: the
// manager logs it and starts with an empty set.
func (m *Manager) Start(ctx context.Context) error {
	loaded, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrCorruptState) {
			return fmt.Errorf("load tasks: %w", err)
		}
		m.logger.Error("persisted task state unreadable, starting empty", "error", err)
		loaded = nil
	}

	m.mu.Lock()
	var requeue []*models.Task
	for _, t := range loaded {
		if t.Status == models.TaskProcessing {
			t.Status = models.TaskFailed
			t.Error = ErrInterrupted.Error()
			now := m.now()
			t.CompletedAt = &now
			m.logger.Warn("marking interrupted task failed", "task_id", t.ID, "type", t.Type)
		}
		m.tasks[t.ID] = t
		if t.Status == models.TaskPending {
			requeue = append(requeue, t)
		}
	}
	slices.SortFunc(requeue, func(a, b *models.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for _, t := range requeue {
		m.pending = append(m.pending, t.ID)
	}
	m.mu.Unlock()

	if len(loaded) > 0 {
		m.persist(ctx)
		m.logger.Info("loaded persisted tasks", "count", len(loaded), "requeued", len(requeue))
	}

	m.wg.Add(1)
	go m.workerLoop()
	m.signal()
	return nil
}

// Close stops the worker and waits for an in-flight task to finish.
func (m *Manager) Close() {
	close(m.stopc)
	m.wg.Wait()
}

// Submit enqueues a new pending task and persists it. It returns
// immediately; execution happens on the worker.
func (m *Manager) Submit(taskType models.TaskType, files []models.FileRef, params map[string]any) (*models.Task, error) {
	if _, ok := m.handlers[taskType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	task := &models.Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Status:    models.TaskPending,
		Files:     files,
		Params:    params,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.pending = append(m.pending, task.ID)
	m.mu.Unlock()

	m.persist(context.Background())
	m.signal()

	m.logger.Info("task submitted", "task_id", task.ID, "type", taskType, "files", len(files))
	return task.Clone(), nil
}

// Get returns a snapshot of a task, or nil if unknown.
func (m *Manager) Get(id string) *models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		return t.Clone()
	}
	return nil
}

// Status returns the lifecycle status of a task.
func (m *Manager) Status(id string) (models.TaskStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		return t.Status, true
	}
	return "", false
}

// Recent returns snapshots of the n most recently created tasks, newest
// first. n <= 0 returns everything.
func (m *Manager) Recent(n int) []*models.Task {
	m.mu.RLock()
	out := make([]*models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Delete removes a task. A task the worker currently owns is rejected with
// ErrTaskProcessing and left unchanged.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if t.Status == models.TaskProcessing {
		m.mu.Unlock()
		return ErrTaskProcessing
	}
	delete(m.tasks, id)
	// Drop a still-pending task from the queue as well.
	for i, pid := range m.pending {
		if pid == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.persist(context.Background())
	m.logger.Info("task deleted", "task_id", id)
	return nil
}

// ClearCompleted removes all tasks in a terminal state and returns how many
// were dropped.
func (m *Manager) ClearCompleted() int {
	m.mu.Lock()
	removed := 0
	for id, t := range m.tasks {
		if t.Status.Terminal() {
			delete(m.tasks, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.persist(context.Background())
	}
	m.logger.Info("cleared completed tasks", "removed", removed)
	return removed
}

// Current returns the ID of the task being processed, or "".
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// signal wakes the worker without blocking the producer.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// workerLoop is the single worker: it blocks until woken, then drains the
// pending queue in FIFO order. Tasks never run concurrently with each
// other even though submission is concurrent-safe.
func (m *Manager) workerLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopc:
			return
		case <-m.wake:
		}

		for {
			select {
			case <-m.stopc:
				return
			default:
			}

			task := m.dequeue()
			if task == nil {
				break
			}
			m.process(task)
		}
	}
}

// dequeue claims the oldest pending task for the worker.
func (m *Manager) dequeue() *models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]
		if t, ok := m.tasks[id]; ok {
			m.current = id
			return t
		}
		// Task was deleted while queued; skip.
	}
	return nil
}

// process runs one task through its full lifecycle. Handler panics and
// errors are contained here; they fail the task and the loop resumes.
func (m *Manager) process(task *models.Task) {
	ctx := context.Background()

	m.mu.Lock()
	task.Status = models.TaskProcessing
	started := m.now()
	task.StartedAt = &started
	m.mu.Unlock()
	m.persist(ctx)

	m.logger.Info("task started", "task_id", task.ID, "type", task.Type)

	result, err := m.invoke(ctx, task)

	m.mu.Lock()
	if result != nil {
		task.Result = result
	}
	if err != nil {
		task.Status = models.TaskFailed
		task.Error = err.Error()
	} else if task.Status != models.TaskFailed {
		task.Status = models.TaskCompleted
		task.Progress = 100
	}
	completed := m.now()
	task.CompletedAt = &completed
	status := task.Status
	m.current = ""
	m.mu.Unlock()
	m.persist(ctx)

	if err != nil {
		m.logger.Error("task failed", "task_id", task.ID, "type", task.Type, "error", err)
	} else {
		m.logger.Info("task finished", "task_id", task.ID, "type", task.Type,
			"status", status, "duration", completed.Sub(started))
	}
}

// invoke dispatches to the registered handler, converting panics into
// errors at the loop boundary.
func (m *Manager) invoke(ctx context.Context, task *models.Task) (result *models.TaskResult, err error) {
	handler, ok := m.handlers[task.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	progress := func(percent int) {
		m.setProgress(task, percent)
	}
	return handler(ctx, task, progress)
}

// setProgress records a progress update and persists it. Progress is
// monotonic while processing; stale or out-of-range updates are ignored.
func (m *Manager) setProgress(task *models.Task, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	m.mu.Lock()
	if task.Status != models.TaskProcessing || percent <= task.Progress {
		m.mu.Unlock()
		return
	}
	task.Progress = percent
	m.mu.Unlock()

	m.persist(context.Background())
}

// persist writes the full task list through the store. Persistence failures
// are logged, not fatal: in-memory state stays authoritative for the
// process lifetime.
func (m *Manager) persist(ctx context.Context) {
	m.mu.RLock()
	snapshot := make([]*models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		snapshot = append(snapshot, t.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(snapshot, func(a, b *models.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if err := m.store.Save(ctx, snapshot); err != nil {
		m.logger.Warn("failed to persist tasks", "error", err)
	}
}
