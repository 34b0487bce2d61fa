package response

import (
	"strings"
	"testing"

	"github.com/insurelex/answer-engine/internal/retrieval"
	"github.com/stretchr/testify/assert"
)

func TestCalculateConfidence_SourceRelevanceIsTopThreeMean(t *testing.T) {
	conf := CalculateConfidence(ConfidenceInput{
		Results: []retrieval.Result{
			{CombinedScore: 0.9},
			{CombinedScore: 0.8},
			{CombinedScore: 0.7},
			{CombinedScore: 0.1},
		},
		Answer:           "The waiting period is 30 days per clause 4.2.",
		SubQuestionCount: 1,
		CitationCount:    1,
		MaxTokens:        8000,
	})

	assert.InDelta(t, 0.8, conf.SourceRelevance, 1e-9)
}

func TestCalculateConfidence_CitationQualityScalesWithSubQuestions(t *testing.T) {
	conf := CalculateConfidence(ConfidenceInput{
		Results:          []retrieval.Result{{CombinedScore: 0.9}},
		Answer:           "Answers.",
		SubQuestionCount: 5,
		CitationCount:    2,
		MaxTokens:        8000,
	})

	assert.InDelta(t, 0.4, conf.CitationQuality, 1e-9)
}

func TestCalculateConfidence_CitationQualityClamped(t *testing.T) {
	conf := CalculateConfidence(ConfidenceInput{
		Answer:           "Answer.",
		SubQuestionCount: 1,
		CitationCount:    7,
	})

	assert.Equal(t, 1.0, conf.CitationQuality)
}

func TestCalculateConfidence_EmptyAnswerScoresZeroCompleteness(t *testing.T) {
	conf := CalculateConfidence(ConfidenceInput{
		Results:   []retrieval.Result{{CombinedScore: 0.9}},
		Answer:    "",
		MaxTokens: 8000,
	})

	assert.Zero(t, conf.ResponseCompleteness)
}

func TestCalculateConfidence_UnansweredSubQuestionsReduceCompleteness(t *testing.T) {
	full := CalculateConfidence(ConfidenceInput{
		Answer:           strings.Repeat("A complete sentence. ", 40),
		SubQuestionCount: 3,
		UnansweredCount:  0,
		MaxTokens:        8000,
	})
	partial := CalculateConfidence(ConfidenceInput{
		Answer:           strings.Repeat("A complete sentence. ", 40),
		SubQuestionCount: 3,
		UnansweredCount:  2,
		MaxTokens:        8000,
	})

	assert.Greater(t, full.ResponseCompleteness, partial.ResponseCompleteness)
}

func TestConfidenceLevels(t *testing.T) {
	tests := []struct {
		overall float64
		want    string
	}{
		{0.85, LevelHigh},
		{0.8, LevelHigh},
		{0.65, LevelMedium},
		{0.45, LevelLow},
		{0.2, LevelVeryLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, confidenceLevel(tt.overall), "overall %.2f", tt.overall)
	}
}

func TestCalculateConfidence_OverallWeighting(t *testing.T) {
	in := ConfidenceInput{
		Results: []retrieval.Result{
			{CombinedScore: 1.0}, {CombinedScore: 1.0}, {CombinedScore: 1.0},
		},
		Answer:           strings.Repeat("The policy covers clause 1. ", 60),
		SubQuestionCount: 1,
		CitationCount:    1,
		MaxTokens:        8000,
	}

	conf := CalculateConfidence(in)

	// All components saturate: 0.4 + 0.3 + 0.2 + 0.1 = 1.0.
	assert.InDelta(t, 1.0, conf.Overall, 1e-9)
	assert.Equal(t, LevelHigh, conf.Level)
}
