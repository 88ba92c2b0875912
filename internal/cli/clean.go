package cli

import (
	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/models"
)

var cleanTags []string

var cleanCmd = &cobra.Command{
	Use:   "clean [file]...",
	Short: "Apply Markdown cleanup rules to library files",
	Long: `Clean rewrites stored library files through the cleanup rules.
Without file arguments the whole library is cleaned. Files the rules
leave unchanged are reported as skipped.

Rule tags restrict which rules run; without --tags, a file's own tags
are consulted, and files without matching tags get every rule.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanTags, "tags", nil, "rule tags overriding per-file tags")
}

func runClean(cmd *cobra.Command, args []string) error {
	var files []models.FileRef
	for _, name := range args {
		files = append(files, models.FileRef{Filename: name})
	}

	params := map[string]any{}
	if len(cleanTags) > 0 {
		params["tags"] = cleanTags
	}

	task, err := manager.Submit(models.TaskBatchClean, files, params)
	if err != nil {
		return err
	}
	return watchTask(manager, task)
}
