package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/insurelex/answer-engine/internal/legal"
	"github.com/insurelex/answer-engine/internal/observability"
)

// Complexity buckets a query by how much work answering it takes.
type Complexity string

// Complexity levels.
const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// QueryContext is the analyzed form of a user question. It is built once
// per query and carried read-only through the pipeline.
type QueryContext struct {
	Raw               string
	Normalized        string
	Intent            legal.Intent
	IntentConfidence  float64
	Complexity        Complexity
	Keywords          []string
	SubQuestions      []string
	MatchedCategories []legal.Category
	CategoryCounts    map[legal.Category]int
}

// Analyzer classifies queries against the domain dictionary.
type Analyzer struct {
	logger        *observability.Logger
	categoryForms map[legal.Category][]*regexp.Regexp
}

// NewAnalyzer creates an analyzer with all category surface forms
// precompiled as whole-word patterns.
func NewAnalyzer(logger *observability.Logger) *Analyzer {
	if logger == nil {
		logger = observability.Nop()
	}

	forms := make(map[legal.Category][]*regexp.Regexp, len(legal.AllCategories))
	for cat, surfaceForms := range legal.CategoryForms {
		compiled := make([]*regexp.Regexp, 0, len(surfaceForms))
		for _, form := range surfaceForms {
			compiled = append(compiled, regexp.MustCompile(`\b`+regexp.QuoteMeta(form)+`\b`))
		}
		forms[cat] = compiled
	}

	return &Analyzer{
		logger:        logger.WithOperation("query_analysis"),
		categoryForms: forms,
	}
}

// Analyze normalizes the question and derives intent, complexity,
// keywords, and sub-questions.
func (a *Analyzer) Analyze(raw string) QueryContext {
	normalized := Normalize(raw)
	subQuestions := SplitSubQuestions(normalized)
	counts := a.CountCategories(normalized)

	intent, confidence := a.classifyIntent(counts)
	matched := sortedCategories(counts)

	qc := QueryContext{
		Raw:               raw,
		Normalized:        normalized,
		Intent:            intent,
		IntentConfidence:  confidence,
		Keywords:          ExtractKeywords(normalized),
		SubQuestions:      subQuestions,
		MatchedCategories: matched,
		CategoryCounts:    counts,
	}
	qc.Complexity = classifyComplexity(normalized, subQuestions, matched)

	a.logger.Debug().
		Str("intent", string(intent)).
		Float64("confidence", confidence).
		Str("complexity", string(qc.Complexity)).
		Int("sub_questions", len(subQuestions)).
		Msg("Analyzed query")

	return qc
}

// CountCategories counts surface-form occurrences per category in text.
// Categories with zero matches are absent from the result.
func (a *Analyzer) CountCategories(text string) map[legal.Category]int {
	counts := make(map[legal.Category]int)
	for cat, patterns := range a.categoryForms {
		total := 0
		for _, p := range patterns {
			total += len(p.FindAllStringIndex(text, -1))
		}
		if total > 0 {
			counts[cat] = total
		}
	}
	return counts
}

// classifyIntent picks the primary intent from category match counts.
// Highest count wins; ties fall back to the fixed intent priority order.
// No matches means information_seeking with zero confidence.
func (a *Analyzer) classifyIntent(counts map[legal.Category]int) (legal.Intent, float64) {
	if len(counts) == 0 {
		return legal.IntentInformationSeeking, 0
	}

	var best legal.Category
	bestCount := -1
	for _, cat := range legal.AllCategories {
		n, ok := counts[cat]
		if !ok {
			continue
		}
		if n > bestCount {
			best, bestCount = cat, n
			continue
		}
		if n == bestCount &&
			legal.IntentPriority(legal.CategoryIntent[cat]) < legal.IntentPriority(legal.CategoryIntent[best]) {
			best = cat
		}
	}

	confidence := float64(len(counts)) / float64(len(legal.AllCategories))
	return legal.CategoryIntent[best], confidence
}

// sortedCategories orders matched categories by count descending, then by
// the stable category order.
func sortedCategories(counts map[legal.Category]int) []legal.Category {
	matched := make([]legal.Category, 0, len(counts))
	for _, cat := range legal.AllCategories {
		if _, ok := counts[cat]; ok {
			matched = append(matched, cat)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return counts[matched[i]] > counts[matched[j]]
	})
	return matched
}

// classifyComplexity buckets the query. More than one sub-question forces
// at least medium; three or more matched categories forces high.
func classifyComplexity(normalized string, subQuestions []string, matched []legal.Category) Complexity {
	words := len(strings.Fields(normalized))

	if len(matched) >= 3 || len(subQuestions) > 3 || words > 30 {
		return ComplexityHigh
	}
	if len(subQuestions) > 1 || len(matched) == 2 || words > 15 {
		return ComplexityMedium
	}
	return ComplexityLow
}

// ExtractKeywords tokenizes normalized text, drops stop words and tokens
// of two characters or fewer, and preserves first-seen order.
func ExtractKeywords(normalized string) []string {
	seen := make(map[string]struct{})
	var keywords []string

	for _, token := range strings.Fields(normalized) {
		token = strings.Trim(token, `.,;:!?"'()[]{}`)
		if len(token) <= 2 || legal.IsStopWord(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	return keywords
}
