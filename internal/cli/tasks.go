package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/models"
)

var tasksLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List or inspect background tasks",
	Long: `List recent background tasks or inspect a specific task by ID.

Examples:
  amphora tasks           # List recent tasks
  amphora tasks abc123    # Show details for task abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a finished or queued task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	},
}

var tasksClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all finished tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		n := manager.ClearCompleted()
		fmt.Printf("Removed %d finished tasks\n", n)
		return nil
	},
}

func init() {
	tasksCmd.Flags().IntVarP(&tasksLimit, "limit", "n", 20, "number of tasks to list")
	tasksCmd.AddCommand(tasksDeleteCmd)
	tasksCmd.AddCommand(tasksClearCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showTask(args[0])
	}
	return listTasks()
}

func listTasks() error {
	recent := manager.Recent(tasksLimit)
	if len(recent) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	fmt.Printf("%-36s %-12s %-12s %-9s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "CREATED")
	for _, task := range recent {
		fmt.Printf("%-36s %-12s %-12s %8d%% %s\n",
			task.ID, task.Type, task.Status, task.Progress,
			task.CreatedAt.Format("15:04:05"))
	}
	return nil
}

func showTask(id string) error {
	task := manager.Get(id)
	if task == nil {
		return fmt.Errorf("task not found: %s", id)
	}

	fmt.Printf("Task: %s\n", task.ID)
	fmt.Printf("  Type: %s\n", task.Type)
	fmt.Printf("  Status: %s\n", task.Status)
	fmt.Printf("  Progress: %d%%\n", task.Progress)
	fmt.Printf("  Created: %s\n", task.CreatedAt.Format(time.RFC3339))
	if task.StartedAt != nil {
		fmt.Printf("  Started: %s\n", task.StartedAt.Format(time.RFC3339))
	}
	if task.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", task.CompletedAt.Format(time.RFC3339))
		if task.StartedAt != nil {
			fmt.Printf("  Duration: %s\n", task.CompletedAt.Sub(*task.StartedAt).Round(time.Second))
		}
	}
	if task.Error != "" {
		fmt.Printf("  Error: %s\n", task.Error)
	}

	if r := task.Result; r != nil {
		fmt.Println("\nResult:")
		if r.Message != "" {
			fmt.Printf("  %s\n", r.Message)
		}
		fmt.Printf("  Success: %d  Skipped: %d  Errors: %d\n",
			r.SuccessCount, r.SkippedCount, r.ErrorCount)
		for _, d := range r.Details {
			if d.Status == models.ItemSuccess && d.Message == "" {
				continue
			}
			fmt.Printf("    %-8s %s", d.Status, d.Filename)
			if d.Message != "" {
				fmt.Printf(": %s", d.Message)
			}
			fmt.Println()
		}
	}
	return nil
}
