package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document from the corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, err := eng.ListDocuments(context.Background())
	if err != nil {
		return err
	}

	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(docs)
	}

	if len(docs) == 0 {
		uiInfo("No documents ingested.")
		return nil
	}

	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, []string{
			doc.DocID,
			doc.Title,
			doc.DocType,
			fmt.Sprintf("%d", doc.ChunkCount),
			fmt.Sprintf("%d", doc.WordCount),
			doc.IngestedAt.Format("2006-01-02 15:04"),
		})
	}
	uiTable([]string{"ID", "TITLE", "TYPE", "CHUNKS", "WORDS", "INGESTED"}, rows)
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.DeleteDocument(context.Background(), args[0]); err != nil {
		return err
	}
	uiSuccess("Deleted document %s", args[0])
	return nil
}
