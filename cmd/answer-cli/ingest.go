package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/insurelex/answer-engine/internal/ingest"
)

var (
	ingestDocID   string
	ingestTitle   string
	ingestDocType string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest text documents into the corpus",
	Long: `Ingest one or more plain-text documents. Each file becomes one
document; re-ingesting the same document ID replaces it entirely.

The --doc-id and --title flags apply only when a single file is given;
with multiple files both derive from the file name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", "", "document ID (default: file name without extension)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: file name)")
	ingestCmd.Flags().StringVar(&ingestDocType, "doc-type", "policy", "document type: policy, contract, or other")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) > 1 && (ingestDocID != "" || ingestTitle != "") {
		return fmt.Errorf("--doc-id and --title require a single file")
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	bar := newProgressBar(len(args), "Ingesting documents")
	var results []*ingest.Result

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		base := filepath.Base(path)
		docID := ingestDocID
		if docID == "" {
			docID = strings.TrimSuffix(base, filepath.Ext(base))
		}
		title := ingestTitle
		if title == "" {
			title = base
		}

		result, err := eng.Ingest(context.Background(), ingest.Request{
			DocID:   docID,
			Title:   title,
			DocType: ingestDocType,
			Text:    string(data),
		})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}

		results = append(results, result)
		_ = bar.Add(1)

		for _, warning := range result.Warnings {
			uiWarning("%s: %s", docID, warning)
		}
	}

	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	for _, result := range results {
		uiSuccess("%s: %d chunks (%d words, %s) in %s",
			result.DocID, result.ChunksWritten, result.WordCount,
			result.Method, result.Duration.Round(time.Millisecond))
	}
	return nil
}
