// Package main provides the answer engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/insurelex/answer-engine/internal/config"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/pkg/engine"
)

var (
	cfgFile    string
	outputJSON bool
	noColor    bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "answer-cli",
	Short: "Answer engine CLI for document ingestion and question answering",
	Long: `The answer engine CLI manages a corpus of legal and insurance
documents and answers natural-language questions against it.

Use this tool to:
- Ingest policy and contract text files into the corpus
- Ask questions and inspect the structured, cited answers
- Analyze how a question is classified before running it
- List and delete ingested documents

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Local development convenience; missing .env is not an error.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      logFormat,
			ServiceName: "answer-cli",
		})

		initUI(outputJSON, noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(docsCmd)
}

// newEngine builds an engine from the loaded configuration.
func newEngine() (*engine.Engine, error) {
	return engine.New(logger, cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		uiError("%v", err)
		os.Exit(1)
	}
}
