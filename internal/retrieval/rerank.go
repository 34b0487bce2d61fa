package retrieval

import (
	"sort"
	"strings"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/insurelex/answer-engine/internal/legal"
)

// maxIntentBoost caps the context-aware bonus applied within a
// structural-rank bucket.
const maxIntentBoost = 0.1

// intentTitleCues maps an intent to section-title fragments that signal a
// directly relevant section.
var intentTitleCues = map[legal.Intent][]string{
	legal.IntentTemporal:   {"waiting period", "duration", "term"},
	legal.IntentExclusion:  {"exclusion", "limitation"},
	legal.IntentCoverage:   {"coverage", "benefit"},
	legal.IntentFinancial:  {"premium", "deductible", "payment"},
	legal.IntentClaim:      {"claim"},
	legal.IntentProcedural: {"renewal", "termination", "procedure"},
}

// Reranker assigns structural ranks and applies the context-aware intent
// boost, producing the final deterministic ordering.
type Reranker struct {
	analyzer *analysis.Analyzer
}

// NewReranker creates a reranker sharing the query analyzer's category
// matchers.
func NewReranker(analyzer *analysis.Analyzer) *Reranker {
	return &Reranker{analyzer: analyzer}
}

// Rerank computes each result's structural rank, applies the intent
// boost, and sorts by (structural_rank asc, combined_score desc,
// chunk_id asc). Structural buckets never cross.
func (r *Reranker) Rerank(results []Result, qc analysis.QueryContext) []Result {
	for i := range results {
		results[i].StructuralRank = r.structuralRank(results[i].Text, qc)
		results[i].CombinedScore = r.applyIntentBoost(results[i], qc.Intent)
	}

	sortResults(results)
	return results
}

// AssignRanks sets structural ranks and sorts without applying the
// intent boost. Used for fallback results, whose combined score must stay
// equal to the keyword score.
func (r *Reranker) AssignRanks(results []Result, qc analysis.QueryContext) []Result {
	for i := range results {
		results[i].StructuralRank = r.structuralRank(results[i].Text, qc)
	}
	sortResults(results)
	return results
}

// structuralRank encodes domain co-occurrence between query and
// candidate: 1 when a query-matched category also appears in the text,
// 2 when only a generic legal term overlaps, 3 otherwise.
func (r *Reranker) structuralRank(text string, qc analysis.QueryContext) int {
	if len(qc.CategoryCounts) > 0 && text != "" {
		textCategories := r.analyzer.CountCategories(strings.ToLower(text))
		for cat := range qc.CategoryCounts {
			if _, ok := textCategories[cat]; ok {
				return 1
			}
		}
	}

	lowerText := strings.ToLower(text)
	for _, term := range legal.GenericOverlapTerms {
		if strings.Contains(lowerText, term) && strings.Contains(qc.Normalized, term) {
			return 2
		}
	}

	return 3
}

// applyIntentBoost raises the combined score by up to maxIntentBoost when
// the candidate's section title or metadata category speaks to the
// query's primary intent. The result stays capped at 1.
func (r *Reranker) applyIntentBoost(res Result, intent legal.Intent) float64 {
	cues, ok := intentTitleCues[intent]
	if !ok {
		return res.CombinedScore
	}

	title := strings.ToLower(MetadataString(res.Metadata, "section_title"))
	category := strings.ToLower(MetadataString(res.Metadata, "category"))
	if title == "" && category == "" {
		return res.CombinedScore
	}

	for _, cue := range cues {
		if strings.Contains(title, cue) || strings.Contains(category, cue) {
			boosted := res.CombinedScore * (1 + maxIntentBoost)
			return clamp(boosted, 0, 1)
		}
	}

	return res.CombinedScore
}

// sortResults orders results deterministically.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].StructuralRank != results[j].StructuralRank {
			return results[i].StructuralRank < results[j].StructuralRank
		}
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}
