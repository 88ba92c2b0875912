package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/service"
)

var (
	queryCollection string
	queryTitle      string
	querySoft       bool
	queryThreshold  float64
	queryTemplate   string
	querySources    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against a collection",
	Long: `Query retrieves the closest document chunks and synthesizes an
answer. With --title, retrieval is restricted to one document; --soft
additionally resolves near-miss titles by fuzzy matching.

Examples:
  amphora query -c papers "What is attention?"
  amphora query -c papers --title "Attention Is All You Need" --soft "Who wrote it?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryCollection, "collection", "c", "", "collection to query (required)")
	queryCmd.Flags().StringVarP(&queryTitle, "title", "t", "", "restrict retrieval to one document title")
	queryCmd.Flags().BoolVar(&querySoft, "soft", false, "fuzzy-match the title when no exact match exists")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity for soft matches (0 uses the configured default)")
	queryCmd.Flags().StringVar(&queryTemplate, "template", "", "prompt template for this query")
	queryCmd.Flags().BoolVar(&querySources, "sources", false, "list the retrieved chunks under the answer")
	_ = queryCmd.MarkFlagRequired("collection")
}

func runQuery(cmd *cobra.Command, args []string) error {
	threshold := queryThreshold
	if threshold == 0 {
		threshold = cfg.SoftThreshold
	}

	result, err := querySvc.Query(cmd.Context(), queryCollection, args[0], service.QueryOptions{
		Title:     queryTitle,
		SoftMatch: querySoft,
		Threshold: threshold,
		Template:  queryTemplate,
	})
	if err != nil {
		return err
	}

	if result.NoMatch {
		fmt.Printf("No document matched title %q: %s\n", result.RequestedTitle, result.Reason)
		return nil
	}
	if result.SoftMatchUsed {
		fmt.Printf("(using closest title %q)\n\n", result.MatchedTitle)
	}

	if result.Answer != "" {
		fmt.Println(strings.TrimSpace(result.Answer))
	} else {
		fmt.Println("No answer generated.")
	}

	if querySources && len(result.Documents) > 0 {
		fmt.Println("\nSources:")
		for _, doc := range result.Documents {
			line := doc.Source()
			if title := doc.Title(); title != "" {
				line = fmt.Sprintf("%s (%s)", title, doc.Source())
			}
			fmt.Printf("  • %s score=%.3f\n", line, doc.Score)
		}
	}
	return nil
}
