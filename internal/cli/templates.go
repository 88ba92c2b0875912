package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fwirtz/amphora/internal/pipeline"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the available prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, tmpl := range pipeline.Templates() {
			marker := " "
			if tmpl.Key == pipeline.DefaultTemplate {
				marker = "*"
			}
			fmt.Printf("%s %-10s %s\n", marker, tmpl.Key, tmpl.Description)
		}
		fmt.Println("\n* default")
		return nil
	},
}
