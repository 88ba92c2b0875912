package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/models"
)

var (
	ingestTags        []string
	ingestDescription string
	ingestClean       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add Markdown or PDF files to the library",
	Long: `Ingest converts the given files into library Markdown documents.
PDFs are converted to Markdown; Markdown files are taken as-is. With
--clean, cleanup rules run on the converted content before it is stored.

Examples:
  amphora ingest notes.md paper.pdf
  amphora ingest --tags physics,draft --clean chapter1.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "tags stored on every ingested file")
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "description stored on every ingested file")
	ingestCmd.Flags().BoolVar(&ingestClean, "clean", false, "run Markdown cleanup rules during ingest")
}

func runIngest(cmd *cobra.Command, args []string) error {
	files := make([]models.FileRef, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		files = append(files, models.FileRef{
			Filename: filepath.Base(abs),
			Path:     abs,
		})
	}

	params := map[string]any{}
	if len(ingestTags) > 0 {
		params["tags"] = ingestTags
	}
	if ingestDescription != "" {
		params["description"] = ingestDescription
	}
	if ingestClean {
		params["clean_md"] = "on"
	}

	task, err := manager.Submit(models.TaskFileIngest, files, params)
	if err != nil {
		return err
	}
	return watchTask(manager, task)
}
