package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/insurelex/answer-engine/internal/response"
	"github.com/insurelex/answer-engine/pkg/engine"
)

var (
	queryTopK      int
	queryThreshold float64
	queryDocID     string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the ingested corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of sources to retrieve (default from config)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "base similarity threshold (default from config)")
	queryCmd.Flags().StringVar(&queryDocID, "doc", "", "restrict the search to one document ID")
}

func runQuery(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	req := engine.QueryRequest{
		Question:      args[0],
		TopK:          queryTopK,
		BaseThreshold: queryThreshold,
	}
	if queryDocID != "" {
		req.Filter = map[string]string{"doc_id": queryDocID}
	}

	stop := newSpinner("Searching...")
	envelope, err := eng.Query(context.Background(), req)
	stop()

	if err != nil && envelope == nil {
		return err
	}

	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(envelope)
	}

	printEnvelope(envelope)
	return err
}

func printEnvelope(envelope *response.StructuredResponse) {
	switch envelope.ResponseType {
	case response.TypeNoResults:
		uiWarning("No matching content found.")
	case response.TypeError:
		uiError("Query failed at stage %q.", envelope.Explainability.AuditTrail.FailedStage)
	default:
		uiSection("Answer")
		fmt.Println(envelope.Answer)
	}

	if len(envelope.Sources) > 0 {
		uiSection("Sources")
		rows := make([][]string, 0, len(envelope.Sources))
		for i, src := range envelope.Sources {
			clauses := make([]string, 0, len(src.ClauseReferences))
			for _, ref := range src.ClauseReferences {
				clauses = append(clauses, ref.Identifier)
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				src.ChunkID,
				fmt.Sprintf("%.3f", src.CombinedScore),
				strings.Join(clauses, ", "),
			})
		}
		uiTable([]string{"#", "CHUNK", "SCORE", "CLAUSES"}, rows)
	}

	fmt.Println()
	confidence := fmt.Sprintf("%.0f%% (%s)",
		envelope.Confidence.Overall*100, envelope.Confidence.Level)
	switch envelope.Confidence.Level {
	case response.LevelHigh:
		color.New(color.FgGreen).Printf("Confidence: %s\n", confidence)
	case response.LevelMedium:
		color.New(color.FgYellow).Printf("Confidence: %s\n", confidence)
	default:
		color.New(color.FgRed).Printf("Confidence: %s\n", confidence)
	}

	for _, warning := range envelope.Warnings {
		uiWarning("%s", warning.Message)
	}
	for _, rec := range envelope.Recommendations {
		uiInfo("%s", rec.Message)
	}
}
