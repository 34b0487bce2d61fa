// Package analysis provides query normalization, sub-question detection,
// intent classification, and search-variant expansion.
package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/insurelex/answer-engine/internal/legal"
)

// synonymRule is a compiled whole-word substitution.
type synonymRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// compiledSynonyms holds the substitution rules, longest surface form
// first so shorter forms never clip a longer match.
var compiledSynonyms = compileSynonyms(legal.Synonyms)

func compileSynonyms(table []legal.Synonym) []synonymRule {
	sorted := make([]legal.Synonym, len(table))
	copy(sorted, table)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].From) > len(sorted[j].From)
	})

	rules := make([]synonymRule, 0, len(sorted))
	for _, s := range sorted {
		rules = append(rules, synonymRule{
			pattern:     regexp.MustCompile(`\b` + regexp.QuoteMeta(s.From) + `\b`),
			replacement: s.To,
		})
	}
	return rules
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases the query, collapses whitespace, trims, and applies
// the domain synonym table as whole-word substitutions. Idempotent:
// Normalize(Normalize(q)) == Normalize(q).
func Normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = whitespaceRe.ReplaceAllString(q, " ")

	for _, rule := range compiledSynonyms {
		q = rule.pattern.ReplaceAllString(q, rule.replacement)
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(q, " "))
}
