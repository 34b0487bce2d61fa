// Package main provides UI utilities for the answer engine CLI.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var jsonMode bool

func initUI(json, disableColor bool) {
	jsonMode = json
	if disableColor || json {
		color.NoColor = true
	}
}

// uiSuccess prints a success line, suppressed in JSON mode.
func uiSuccess(format string, args ...interface{}) {
	if jsonMode {
		return
	}
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// uiWarning prints a warning line, suppressed in JSON mode.
func uiWarning(format string, args ...interface{}) {
	if jsonMode {
		return
	}
	color.New(color.FgYellow).Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// uiError prints an error line to stderr.
func uiError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// uiInfo prints an informational line, suppressed in JSON mode.
func uiInfo(format string, args ...interface{}) {
	if jsonMode {
		return
	}
	fmt.Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

// uiSection prints an underlined section header.
func uiSection(title string) {
	if jsonMode {
		return
	}
	fmt.Printf("\n%s\n%s\n", title, strings.Repeat("=", len(title)))
}

// uiTable prints rows in aligned columns.
func uiTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// newSpinner creates an indeterminate spinner writing to stderr. The
// returned stop function is safe in JSON mode, where no spinner runs.
func newSpinner(message string) (stop func()) {
	if jsonMode {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	s.Start()
	return s.Stop
}

// newProgressBar creates a determinate progress bar writing to stderr.
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetVisibility(!jsonMode),
	)
}
