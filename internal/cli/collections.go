package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// collectionLister is implemented by both store backends.
type collectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage embedding collections",
	RunE:  runCollectionsList,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and all its documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

var collectionsTitlesCmd = &cobra.Command{
	Use:   "titles <name>",
	Short: "List the document titles in a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsTitles,
}

func init() {
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	collectionsCmd.AddCommand(collectionsTitlesCmd)
}

func runCollectionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	lister, ok := docStore.(collectionLister)
	if !ok {
		return fmt.Errorf("store backend cannot enumerate collections")
	}
	names, err := lister.Collections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No collections found")
		return nil
	}

	fmt.Printf("%-30s %s\n", "COLLECTION", "DOCUMENTS")
	for _, name := range names {
		count, err := docStore.Count(ctx, name)
		if err != nil {
			return fmt.Errorf("count %s: %w", name, err)
		}
		fmt.Printf("%-30s %d\n", name, count)
	}
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	existed, err := docStore.DeleteCollection(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if !existed {
		return fmt.Errorf("collection not found: %s", name)
	}

	// Drop cached state so a recreated collection starts fresh.
	titles.Remove(name)
	pipePool.Clear("", name)

	fmt.Printf("Deleted collection %s\n", name)
	return nil
}

func runCollectionsTitles(cmd *cobra.Command, args []string) error {
	names, err := querySvc.Titles(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No titles found")
		return nil
	}
	for _, title := range names {
		fmt.Println(title)
	}
	return nil
}
