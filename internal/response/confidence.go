package response

import (
	"strings"

	"github.com/insurelex/answer-engine/internal/retrieval"
)

// Overall confidence weights.
const (
	weightSourceRelevance = 0.4
	weightCompleteness    = 0.3
	weightCitationQuality = 0.2
	weightLengthFactor    = 0.1
)

// wellFormedAnswerWords is the answer length at which the length factor
// saturates.
const wellFormedAnswerWords = 150

// ConfidenceInput carries the signals the calculator reads.
type ConfidenceInput struct {
	Results          []retrieval.Result
	Answer           string
	SubQuestionCount int
	UnansweredCount  int
	CitationCount    int
	MaxTokens        int
}

// CalculateConfidence computes the confidence breakdown and maps the
// overall score to a level.
func CalculateConfidence(in ConfidenceInput) Confidence {
	sourceRelevance := topCombinedMean(in.Results, 3)
	completeness := responseCompleteness(in)
	citations := citationQuality(in.CitationCount, in.SubQuestionCount)

	overall := weightSourceRelevance*sourceRelevance +
		weightCompleteness*completeness +
		weightCitationQuality*citations +
		weightLengthFactor*lengthFactor(in.Answer)

	return Confidence{
		Overall:              overall,
		Level:                confidenceLevel(overall),
		SourceRelevance:      sourceRelevance,
		ResponseCompleteness: completeness,
		CitationQuality:      citations,
	}
}

func confidenceLevel(overall float64) string {
	switch {
	case overall >= 0.8:
		return LevelHigh
	case overall >= 0.6:
		return LevelMedium
	case overall >= 0.4:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// topCombinedMean averages the combined scores of the first n results.
// The results arrive already ranked.
func topCombinedMean(results []retrieval.Result, n int) float64 {
	if len(results) == 0 {
		return 0
	}
	if len(results) < n {
		n = len(results)
	}
	var sum float64
	for _, res := range results[:n] {
		sum += res.CombinedScore
	}
	return sum / float64(n)
}

// responseCompleteness blends final punctuation, length relative to the
// token budget, and sub-question coverage.
func responseCompleteness(in ConfidenceInput) float64 {
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return 0
	}

	score := 0.0

	if strings.HasSuffix(answer, ".") || strings.HasSuffix(answer, "?") ||
		strings.HasSuffix(answer, "!") {
		score += 1.0 / 3
	}

	// Rough 1.3 words-per-token heuristic against the output budget; an
	// answer using a reasonable fraction of the budget reads complete.
	budgetWords := float64(in.MaxTokens) / 1.3
	if budgetWords <= 0 {
		budgetWords = 1
	}
	ratio := float64(len(strings.Fields(answer))) / budgetWords
	if ratio > 0.05 {
		score += 1.0 / 3
	}

	if in.SubQuestionCount <= 1 || in.UnansweredCount == 0 {
		score += 1.0 / 3
	}

	if score > 1 {
		score = 1
	}
	return score
}

// citationQuality = min(1, citations / max(1, sub_questions)).
func citationQuality(citations, subQuestions int) float64 {
	if subQuestions < 1 {
		subQuestions = 1
	}
	q := float64(citations) / float64(subQuestions)
	if q > 1 {
		q = 1
	}
	return q
}

// lengthFactor rewards substantial answers, saturating at
// wellFormedAnswerWords.
func lengthFactor(answer string) float64 {
	words := len(strings.Fields(answer))
	if words >= wellFormedAnswerWords {
		return 1
	}
	return float64(words) / wellFormedAnswerWords
}
