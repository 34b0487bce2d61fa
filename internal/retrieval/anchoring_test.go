package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorKeywords_PEDQuery(t *testing.T) {
	qc := testQueryContext(t, "What are the PED exclusions?")

	keywords := AnchorKeywords(qc)

	assert.Contains(t, keywords, "ped")
	assert.Contains(t, keywords, "preexisting diseases")
	assert.Contains(t, keywords, "exclusion")

	seen := make(map[string]int)
	for _, kw := range keywords {
		seen[kw]++
	}
	for kw, n := range seen {
		assert.Equal(t, 1, n, "keyword %q duplicated", kw)
	}
}

func TestAnchorKeywords_NoSignal(t *testing.T) {
	qc := testQueryContext(t, "tell me something nice")
	assert.Empty(t, AnchorKeywords(qc))
}

func TestAnchoring_SkipsScanWithoutKeywords(t *testing.T) {
	// A nil index proves no scan happens when no keywords are extracted.
	a := NewAnchoring(nil, nil, DefaultAnchoringConfig())
	qc := testQueryContext(t, "tell me something nice")

	results, err := a.Retrieve(context.Background(), qc, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnchoring_ReturnsTopMatchesByKeywordRelevance(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	texts := map[string]string{
		"pol:1": "Exclusion of pre-existing disease applies for the first two policy years.",
		"pol:2": "Exclusion clauses are listed in the annexure.",
		"pol:3": "The insurer maintains offices in several cities.",
		"pol:4": "Any exclusion or limitation must be read with the policy schedule.",
		"pol:5": "Preexisting diseases are excluded until the waiting period lapses.",
	}
	for id, text := range texts {
		require.NoError(t, idx.Upsert(ctx, []Record{
			record(id, "pol", []float32{1, 0, 0, 0}, map[string]interface{}{"text": text}),
		}))
	}

	a := NewAnchoring(nil, idx, DefaultAnchoringConfig())
	qc := testQueryContext(t, "What are the PED exclusions?")

	results, err := a.Retrieve(ctx, qc, nil)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)

	for i, res := range results {
		assert.Equal(t, MethodKeywordAnchoring, res.Method)
		assert.Zero(t, res.SemanticScore)
		assert.Equal(t, res.KeywordScore, res.CombinedScore)
		assert.NotEmpty(t, res.MatchedKeywords)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].CombinedScore, res.CombinedScore)
		}
	}

	// The office-locations chunk has no keyword overlap at all.
	for _, res := range results {
		assert.NotEqual(t, "pol:3", res.ChunkID)
	}
}

func TestAnchoring_ScanBudgetBoundsCandidates(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Oldest record is the only keyword match; a scan budget of 2 keeps
	// it out of reach.
	require.NoError(t, idx.Upsert(ctx, []Record{
		record("pol:old", "pol", []float32{1, 0, 0, 0},
			map[string]interface{}{"text": "Exclusion of preexisting diseases."}),
	}))
	require.NoError(t, idx.Upsert(ctx, []Record{
		record("pol:mid", "pol", []float32{0, 1, 0, 0},
			map[string]interface{}{"text": "Unrelated body text."}),
	}))
	require.NoError(t, idx.Upsert(ctx, []Record{
		record("pol:new", "pol", []float32{0, 0, 1, 0},
			map[string]interface{}{"text": "More unrelated body text."}),
	}))

	a := NewAnchoring(nil, idx, AnchoringConfig{MaxScanRecords: 2, MaxResults: 3})
	qc := testQueryContext(t, "What are the PED exclusions?")

	results, err := a.Retrieve(ctx, qc, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnchoring_MaxResultsBound(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Upsert(ctx, []Record{
			record(string(rune('a'+i)), "pol", []float32{1, 0, 0, 0},
				map[string]interface{}{"text": "Exclusion of preexisting diseases applies."}),
		}))
	}

	a := NewAnchoring(nil, idx, AnchoringConfig{MaxScanRecords: 100, MaxResults: 2})
	qc := testQueryContext(t, "What are the PED exclusions?")

	results, err := a.Retrieve(ctx, qc, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
