package cli

import (
	"fmt"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/fwirtz/amphora/internal/models"
	"github.com/fwirtz/amphora/internal/tasks"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the task status
type tickMsg time.Time

// taskUpdateMsg carries the current task snapshot
type taskUpdateMsg struct {
	task *models.Task
}

// progressModel is the bubbletea model for task progress.
type progressModel struct {
	manager  *tasks.Manager
	taskID   string
	task     *models.Task
	progress progress.Model
	theme    Theme
	done     bool
	aborted  bool
}

func newProgressModel(m *tasks.Manager, task *models.Task) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		manager:  m,
		taskID:   task.ID,
		task:     task,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchTask()

	case taskUpdateMsg:
		m.task = msg.task
		if m.task == nil || m.task.Status.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}
	if m.task == nil {
		return "Loading task status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.task.Status))
	bar := m.progress.ViewAs(float64(m.task.Progress) / 100)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort watching")

	return fmt.Sprintf("%s %s %d%%\n%s\n", status, bar, m.task.Progress, hint)
}

func (m progressModel) finalView() string {
	if m.task == nil {
		return m.theme.errorStyle().Render("\n✗ Task disappeared from the queue\n")
	}
	if m.task.Status == models.TaskFailed {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Task failed: %s\n", m.task.Error))
	}
	return renderResult(m.theme, m.task.Result)
}

func renderResult(theme Theme, r *models.TaskResult) string {
	if r == nil {
		return theme.completedStyle().Render("✓ Completed\n")
	}

	out := theme.completedStyle().Render("✓ Completed") + "\n\n"
	if r.Message != "" {
		out += "  " + r.Message + "\n"
	}
	if r.SkippedCount > 0 {
		out += fmt.Sprintf("  Skipped: %d\n", r.SkippedCount)
	}
	if chunks, ok := r.Stats["chunks"]; ok {
		out += fmt.Sprintf("  Chunks written: %v\n", chunks)
	}
	if r.ErrorCount > 0 {
		out += theme.errorStyle().Render(fmt.Sprintf("\nErrors (%d):\n", r.ErrorCount))
		for _, d := range r.Details {
			if d.Status == models.ItemError {
				out += fmt.Sprintf("  • %s: %s\n", d.Filename, d.Message)
			}
		}
	}
	return out
}

// fetchTask snapshots the task from the manager. Runs as a command so a
// slow poll never blocks Update().
func (m progressModel) fetchTask() tea.Cmd {
	return func() tea.Msg {
		return taskUpdateMsg{task: m.manager.Get(m.taskID)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchTask waits for a submitted task to finish. On a terminal it renders
// the interactive progress UI; otherwise it polls quietly and prints the
// plain result.
func watchTask(m *tasks.Manager, task *models.Task) error {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return runTaskProgress(m, task)
	}

	for {
		current := m.Get(task.ID)
		if current == nil {
			return fmt.Errorf("task %s disappeared from the queue", task.ID)
		}
		if current.Status.Terminal() {
			return printTaskOutcome(current)
		}
		time.Sleep(pollInterval)
	}
}

func printTaskOutcome(task *models.Task) error {
	if task.Status == models.TaskFailed {
		return fmt.Errorf("task failed: %s", task.Error)
	}
	if task.Result != nil && task.Result.Message != "" {
		fmt.Println(task.Result.Message)
	} else {
		fmt.Println("completed")
	}
	return nil
}

// runTaskProgress runs the interactive progress UI for a task.
func runTaskProgress(m *tasks.Manager, task *models.Task) error {
	model := newProgressModel(m, task)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if pm, ok := finalModel.(progressModel); ok {
		if pm.aborted {
			// Teardown waits for the worker, so the task still finishes
			// before the process exits.
			fmt.Printf("Stopped watching task %s. Use 'amphora tasks %s' to check on it.\n", task.ID, task.ID)
			return nil
		}
		if pm.task != nil && pm.task.Status == models.TaskFailed {
			return fmt.Errorf("task failed: %s", pm.task.Error)
		}
	}
	return nil
}
