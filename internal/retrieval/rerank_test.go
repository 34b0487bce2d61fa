package retrieval

import (
	"testing"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueryContext(t *testing.T, query string) analysis.QueryContext {
	t.Helper()
	return analysis.NewAnalyzer(nil).Analyze(query)
}

func TestReranker_StructuralRanks(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))

	tests := []struct {
		name  string
		query string
		text  string
		want  int
	}{
		{
			"category co-occurrence",
			"What are the PED exclusions?",
			"Pre-existing disease shall not be covered during the first year.",
			1,
		},
		{
			// "limitation" (singular) overlaps the query but is not a
			// category surface form, so only the generic bucket applies.
			"generic term overlap only",
			"What are the limitations of this policy?",
			"Any limitation stated herein applies to all annexures.",
			2,
		},
		{
			"no overlap",
			"What are the PED exclusions?",
			"The insurer maintains offices in several cities.",
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := testQueryContext(t, tt.query)
			results := r.Rerank([]Result{{ChunkID: "c", Text: tt.text}}, qc)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].StructuralRank)
		})
	}
}

func TestReranker_BucketsNeverCross(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))
	qc := testQueryContext(t, "What are the PED exclusions?")

	results := r.Rerank([]Result{
		{ChunkID: "low-score-rank1", Text: "pre-existing disease clause", CombinedScore: 0.3},
		{ChunkID: "high-score-rank3", Text: "office locations", CombinedScore: 0.95},
		{ChunkID: "mid-score-rank1", Text: "exclusion of preexisting condition", CombinedScore: 0.6},
	}, qc)

	require.Len(t, results, 3)
	assert.Equal(t, "mid-score-rank1", results[0].ChunkID)
	assert.Equal(t, "low-score-rank1", results[1].ChunkID)
	assert.Equal(t, "high-score-rank3", results[2].ChunkID)
}

func TestReranker_IntentBoost(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))
	qc := testQueryContext(t, "How long is the waiting period?")

	boosted := r.Rerank([]Result{{
		ChunkID:       "a",
		Text:          "no category overlap here",
		CombinedScore: 0.5,
		Metadata:      map[string]interface{}{"section_title": "Waiting Period for Maternity"},
	}}, qc)

	plain := r.Rerank([]Result{{
		ChunkID:       "b",
		Text:          "no category overlap here",
		CombinedScore: 0.5,
		Metadata:      map[string]interface{}{"section_title": "General Conditions"},
	}}, qc)

	assert.InDelta(t, 0.55, boosted[0].CombinedScore, 1e-9)
	assert.Equal(t, 0.5, plain[0].CombinedScore)
}

func TestReranker_IntentBoostFromCategory(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))
	qc := testQueryContext(t, "How long is the waiting period?")

	// No section title; the category metadata alone carries the cue.
	boosted := r.Rerank([]Result{{
		ChunkID:       "a",
		Text:          "no category overlap here",
		CombinedScore: 0.5,
		Metadata:      map[string]interface{}{"category": "waiting period"},
	}}, qc)

	assert.InDelta(t, 0.55, boosted[0].CombinedScore, 1e-9)
}

func TestReranker_BoostNeverExceedsOne(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))
	qc := testQueryContext(t, "How long is the waiting period?")

	results := r.Rerank([]Result{{
		ChunkID:       "a",
		Text:          "text",
		CombinedScore: 0.98,
		Metadata:      map[string]interface{}{"section_title": "Waiting Period"},
	}}, qc)

	assert.LessOrEqual(t, results[0].CombinedScore, 1.0)
}

func TestReranker_TieBreaksByChunkID(t *testing.T) {
	r := NewReranker(analysis.NewAnalyzer(nil))
	qc := testQueryContext(t, "anything at all")

	results := r.Rerank([]Result{
		{ChunkID: "b", Text: "same", CombinedScore: 0.4},
		{ChunkID: "a", Text: "same", CombinedScore: 0.4},
	}, qc)

	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "b", results[1].ChunkID)
}
