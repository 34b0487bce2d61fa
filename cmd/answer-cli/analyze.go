package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Show how a question is classified without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	qc := eng.Analyze(args[0])

	if jsonMode {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"raw":                qc.Raw,
			"normalized":         qc.Normalized,
			"intent":             qc.Intent,
			"intent_confidence":  qc.IntentConfidence,
			"complexity":         qc.Complexity,
			"keywords":           qc.Keywords,
			"sub_questions":      qc.SubQuestions,
			"matched_categories": qc.MatchedCategories,
		})
	}

	uiSection("Query Analysis")
	categories := make([]string, 0, len(qc.MatchedCategories))
	for _, c := range qc.MatchedCategories {
		categories = append(categories, string(c))
	}

	uiTable([]string{"FIELD", "VALUE"}, [][]string{
		{"Normalized", qc.Normalized},
		{"Intent", fmt.Sprintf("%s (%.0f%%)", qc.Intent, qc.IntentConfidence*100)},
		{"Complexity", string(qc.Complexity)},
		{"Categories", strings.Join(categories, ", ")},
		{"Keywords", strings.Join(qc.Keywords, ", ")},
	})

	if len(qc.SubQuestions) > 1 {
		uiSection("Sub-questions")
		for i, sub := range qc.SubQuestions {
			fmt.Printf("%d. %s\n", i+1, sub)
		}
	}
	return nil
}
