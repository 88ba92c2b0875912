package cli

import (
	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/models"
)

var (
	embedCollection   string
	embedChunkSize    int
	embedChunkOverlap int
	embedNoDupCheck   bool
	embedReset        bool
)

var embedCmd = &cobra.Command{
	Use:   "embed [file]...",
	Short: "Embed library files into a collection",
	Long: `Embed chunks library files and writes their embeddings into a
collection. Without file arguments the whole library is embedded. Files
already present in the collection are skipped unless duplicate checking
is disabled.

Examples:
  amphora embed --collection papers
  amphora embed --collection papers --reset intro.md`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVarP(&embedCollection, "collection", "c", "", "target collection (required)")
	embedCmd.Flags().IntVar(&embedChunkSize, "chunk-size", 1000, "target chunk size in characters")
	embedCmd.Flags().IntVar(&embedChunkOverlap, "chunk-overlap", 200, "overlap between adjacent chunks")
	embedCmd.Flags().BoolVar(&embedNoDupCheck, "no-duplicate-check", false, "embed files even when their source already exists")
	embedCmd.Flags().BoolVar(&embedReset, "reset", false, "drop the collection before embedding")
	_ = embedCmd.MarkFlagRequired("collection")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	var files []models.FileRef
	for _, name := range args {
		files = append(files, models.FileRef{Filename: name})
	}

	params := map[string]any{
		"collection":       embedCollection,
		"chunk_size":       embedChunkSize,
		"chunk_overlap":    embedChunkOverlap,
		"check_duplicates": !embedNoDupCheck,
		"reset_collection": embedReset,
	}

	task, err := manager.Submit(models.TaskBatchEmbed, files, params)
	if err != nil {
		return err
	}
	return watchTask(manager, task)
}
