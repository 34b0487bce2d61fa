package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/insurelex/answer-engine/internal/legal"
	"github.com/insurelex/answer-engine/internal/observability"
)

// AnchoringConfig bounds the keyword-anchoring fallback.
type AnchoringConfig struct {
	MaxScanRecords int
	MaxResults     int
}

// DefaultAnchoringConfig returns the documented fallback bounds.
func DefaultAnchoringConfig() AnchoringConfig {
	return AnchoringConfig{
		MaxScanRecords: 1000,
		MaxResults:     3,
	}
}

// Anchoring is the backup retrieval path: when the semantic stages leave
// zero survivors, it scans recent index records for direct keyword
// matches.
type Anchoring struct {
	logger *observability.Logger
	index  VectorIndex
	config AnchoringConfig
}

// NewAnchoring creates the fallback retriever.
func NewAnchoring(logger *observability.Logger, index VectorIndex, cfg AnchoringConfig) *Anchoring {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.MaxScanRecords <= 0 {
		cfg.MaxScanRecords = 1000
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &Anchoring{
		logger: logger.WithOperation("keyword_anchoring"),
		index:  index,
		config: cfg,
	}
}

// Retrieve scans up to MaxScanRecords records and returns the top
// MaxResults by keyword relevance. Results carry the keyword_anchoring
// method, a zero semantic score, and the matched keywords. An empty
// return means the caller renders a no-results response.
func (a *Anchoring) Retrieve(ctx context.Context, qc analysis.QueryContext, filter Filter) ([]Result, error) {
	keywords := AnchorKeywords(qc)
	if len(keywords) == 0 {
		return nil, nil
	}

	records, err := a.index.Scan(ctx, filter, a.config.MaxScanRecords)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, rec := range records {
		text := MetadataString(rec.Metadata, "text")
		if text == "" {
			continue
		}

		ks := ScoreKeywords(text, keywords)
		if ks.Score <= 0 {
			continue
		}

		results = append(results, Result{
			ChunkID:         rec.ID,
			Text:            text,
			Metadata:        rec.Metadata,
			SemanticScore:   0,
			KeywordScore:    ks.Score,
			CombinedScore:   ks.Score,
			Method:          MethodKeywordAnchoring,
			MatchedKeywords: ks.Matched,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > a.config.MaxResults {
		results = results[:a.config.MaxResults]
	}

	a.logger.Debug().
		Int("scanned", len(records)).
		Int("results", len(results)).
		Strs("keywords", keywords).
		Msg("Keyword anchoring completed")

	return results, nil
}

// AnchorKeywords extracts the fallback keyword set from an analyzed
// query: every surface form of each matched category, general legal terms
// literally present, and query tokens from the relevant-word list.
func AnchorKeywords(qc analysis.QueryContext) []string {
	seen := make(map[string]struct{})
	var keywords []string

	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, cat := range qc.MatchedCategories {
		for _, form := range legal.CategoryForms[cat] {
			add(form)
		}
	}

	for _, term := range legal.GeneralLegalTerms {
		if strings.Contains(qc.Normalized, term) {
			add(term)
		}
	}

	relevant := make(map[string]struct{}, len(legal.RelevantWords))
	for _, w := range legal.RelevantWords {
		relevant[w] = struct{}{}
	}
	for _, token := range strings.Fields(qc.Normalized) {
		token = strings.Trim(token, `.,;:!?"'()`)
		if _, ok := relevant[token]; ok {
			add(token)
		}
	}

	return keywords
}
