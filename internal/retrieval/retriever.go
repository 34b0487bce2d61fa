package retrieval

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/observability"
)

// Embedder is the slice of the embedding provider the retriever needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds hybrid retrieval settings.
type Config struct {
	Thresholds             Thresholds
	AdaptiveThreshold      bool
	MinResultsRequired     int
	EnableHybridSearch     bool
	SemanticWeight         float64
	KeywordWeight          float64
	EnableKeywordAnchoring bool
	EnableQueryEnhancement bool
	MaxQueryVariants       int
	CandidatesPerVariant   int
	MaxKeywordScanRecords  int
}

// DefaultConfig returns the documented retrieval defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds:             Thresholds{Min: 0.2, Medium: 0.5, High: 0.8},
		AdaptiveThreshold:      true,
		MinResultsRequired:     1,
		EnableHybridSearch:     true,
		SemanticWeight:         0.7,
		KeywordWeight:          0.3,
		EnableKeywordAnchoring: true,
		EnableQueryEnhancement: true,
		MaxQueryVariants:       5,
		CandidatesPerVariant:   10,
		MaxKeywordScanRecords:  1000,
	}
}

// Options are the per-call knobs.
type Options struct {
	TopK          int
	BaseThreshold float64
	Filter        Filter
}

// Outcome carries the final results plus the search parameters the
// response assembler reports.
type Outcome struct {
	Results        []Result
	ThresholdUsed  float64
	Adaptive       bool
	Method         string
	FallbackUsed   bool
	Relaxed        bool
	CandidateCount int
	VariantsUsed   []string
	StagesFired    []string
}

// Retriever runs the multi-stage hybrid pipeline.
type Retriever struct {
	logger    *observability.Logger
	index     VectorIndex
	embedder  Embedder
	anchoring *Anchoring
	reranker  *Reranker
	config    Config
}

// NewRetriever wires the pipeline, backfilling config defaults.
func NewRetriever(logger *observability.Logger, index VectorIndex, embedder Embedder, anchoring *Anchoring, reranker *Reranker, cfg Config) *Retriever {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.MinResultsRequired < 1 {
		cfg.MinResultsRequired = 1
	}
	if cfg.MaxQueryVariants < 1 {
		cfg.MaxQueryVariants = 1
	}
	if cfg.CandidatesPerVariant < 1 {
		cfg.CandidatesPerVariant = 10
	}
	if cfg.MaxKeywordScanRecords < 1 {
		cfg.MaxKeywordScanRecords = 1000
	}
	if cfg.Thresholds.High == 0 {
		cfg.Thresholds = Thresholds{Min: 0.2, Medium: 0.5, High: 0.8}
	}

	return &Retriever{
		logger:    logger.WithOperation("retrieval"),
		index:     index,
		embedder:  embedder,
		anchoring: anchoring,
		reranker:  reranker,
		config:    cfg,
	}
}

// Retrieve executes the five-stage pipeline for an analyzed query and
// returns the deterministically ordered results.
func (r *Retriever) Retrieve(ctx context.Context, qc analysis.QueryContext, opts Options) (*Outcome, error) {
	if opts.TopK < 1 {
		opts.TopK = 5
	}
	if opts.BaseThreshold <= 0 {
		opts.BaseThreshold = r.config.Thresholds.Min
	}

	method := MethodHybrid
	if !r.config.EnableHybridSearch {
		method = MethodSemantic
	}

	outcome := &Outcome{
		ThresholdUsed: opts.BaseThreshold,
		Adaptive:      r.config.AdaptiveThreshold,
		Method:        method,
	}

	// Stage 1: semantic fan-out across query variants.
	pool, variants, err := r.semanticFanOut(ctx, qc, opts.Filter)
	if err != nil {
		return nil, err
	}
	outcome.VariantsUsed = variants
	outcome.StagesFired = append(outcome.StagesFired, "semantic_fanout")

	// Stage 2: keyword scoring over the candidate pool, widened by a
	// bounded scan of recent records when the pool is under the floor.
	if r.config.EnableHybridSearch {
		if len(pool) < r.config.MinResultsRequired {
			extra, scanErr := r.scanForKeywords(ctx, qc, opts.Filter, pool)
			if scanErr != nil {
				r.logger.WithContext(ctx).Warn().
					Err(scanErr).
					Msg("Keyword scan skipped")
			} else if len(extra) > 0 {
				pool = append(pool, extra...)
				outcome.StagesFired = append(outcome.StagesFired, "keyword_scan")
			}
		}
		r.scoreKeywords(pool, qc)
		outcome.StagesFired = append(outcome.StagesFired, "keyword_scoring")
	}

	// Stage 3: score fusion.
	for i := range pool {
		if r.config.EnableHybridSearch {
			pool[i].CombinedScore = clamp(
				r.config.SemanticWeight*pool[i].SemanticScore+
					r.config.KeywordWeight*pool[i].KeywordScore, 0, 1)
		} else {
			pool[i].CombinedScore = pool[i].SemanticScore
		}
		pool[i].Method = method
	}
	outcome.StagesFired = append(outcome.StagesFired, "score_fusion")
	outcome.CandidateCount = len(pool)

	// Stage 4: adaptive thresholding with relaxation floor.
	threshold := opts.BaseThreshold
	if r.config.AdaptiveThreshold {
		semanticScores := make([]float64, len(pool))
		for i, res := range pool {
			semanticScores[i] = res.SemanticScore
		}
		threshold = EffectiveThreshold(opts.BaseThreshold, semanticScores, r.config.Thresholds)
		outcome.StagesFired = append(outcome.StagesFired, "adaptive_threshold")
	}
	outcome.ThresholdUsed = threshold

	survivors := filterByThreshold(pool, threshold)
	if len(survivors) < r.config.MinResultsRequired {
		relaxed := filterByThreshold(pool, r.config.Thresholds.Min)
		if len(relaxed) > 0 {
			sort.Slice(relaxed, func(i, j int) bool {
				if relaxed[i].CombinedScore != relaxed[j].CombinedScore {
					return relaxed[i].CombinedScore > relaxed[j].CombinedScore
				}
				return relaxed[i].ChunkID < relaxed[j].ChunkID
			})
			if len(relaxed) > r.config.MinResultsRequired {
				relaxed = relaxed[:r.config.MinResultsRequired]
			}
			survivors = relaxed
			outcome.ThresholdUsed = r.config.Thresholds.Min
			outcome.Relaxed = true
			outcome.StagesFired = append(outcome.StagesFired, "threshold_relaxation")
		}
	}

	// Fallback: keyword anchoring fires only on zero survivors.
	if len(survivors) == 0 {
		if !r.config.EnableKeywordAnchoring || r.anchoring == nil {
			return outcome, nil
		}

		anchored, err := r.anchoring.Retrieve(ctx, qc, opts.Filter)
		if err != nil {
			return nil, enginerr.Transient("keyword_anchoring", "index scan failed", err)
		}

		outcome.StagesFired = append(outcome.StagesFired, "keyword_anchoring")
		outcome.FallbackUsed = true
		outcome.Method = MethodKeywordAnchoring
		outcome.Results = r.reranker.AssignRanks(anchored, qc)
		return outcome, nil
	}

	// Stage 5: structural re-rank and truncation.
	survivors = r.reranker.Rerank(survivors, qc)
	outcome.StagesFired = append(outcome.StagesFired, "structural_rerank")

	if len(survivors) > opts.TopK {
		survivors = survivors[:opts.TopK]
	}
	outcome.Results = survivors

	r.logger.WithContext(ctx).Debug().
		Int("candidates", outcome.CandidateCount).
		Int("results", len(outcome.Results)).
		Float64("threshold", outcome.ThresholdUsed).
		Str("method", outcome.Method).
		Msg("Retrieval completed")

	return outcome, nil
}

// semanticFanOut embeds up to MaxQueryVariants query phrasings and
// queries the index concurrently, merging candidates by chunk ID and
// keeping the maximum semantic score per chunk.
func (r *Retriever) semanticFanOut(ctx context.Context, qc analysis.QueryContext, filter Filter) ([]Result, []string, error) {
	variants := []string{qc.Normalized}
	if r.config.EnableQueryEnhancement {
		variants = analysis.BuildVariants(qc, r.config.MaxQueryVariants)
	}

	vectors, err := r.embedder.Embed(ctx, variants)
	if err != nil {
		return nil, variants, enginerr.Transient("embedding", "embed query variants", err)
	}
	if len(vectors) != len(variants) {
		return nil, variants, enginerr.Internal("embedding", "embedding count mismatch", nil)
	}

	merged := make(map[string]Result)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, vector := range vectors {
		vector := vector
		g.Go(func() error {
			matches, err := r.index.Query(gctx, vector, r.config.CandidatesPerVariant, filter)
			if err != nil {
				return enginerr.Transient("vector_index", "similarity query failed", err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, m := range matches {
				existing, ok := merged[m.ID]
				if !ok || m.Score > existing.SemanticScore {
					merged[m.ID] = resultFromMatch(m)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, variants, err
	}

	pool := make([]Result, 0, len(merged))
	for _, res := range merged {
		pool = append(pool, res)
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ChunkID < pool[j].ChunkID })

	return pool, variants, nil
}

// scanForKeywords widens an under-populated candidate pool with a
// bounded scan of recent index records that carry any query keyword.
// The returned results have a zero semantic score; fusion weights them
// by keyword score alone.
func (r *Retriever) scanForKeywords(ctx context.Context, qc analysis.QueryContext, filter Filter, pool []Result) ([]Result, error) {
	if len(qc.Keywords) == 0 {
		return nil, nil
	}

	records, err := r.index.Scan(ctx, filter, r.config.MaxKeywordScanRecords)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(pool))
	for _, res := range pool {
		seen[res.ChunkID] = struct{}{}
	}

	var extra []Result
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		text := MetadataString(rec.Metadata, "text")
		if text == "" {
			continue
		}
		if ks := ScoreKeywords(text, qc.Keywords); ks.Score > 0 {
			extra = append(extra, Result{
				ChunkID:  rec.ID,
				Text:     text,
				Metadata: rec.Metadata,
			})
		}
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i].ChunkID < extra[j].ChunkID })
	return extra, nil
}

// scoreKeywords fills the keyword score and matched keywords for every
// pool entry.
func (r *Retriever) scoreKeywords(pool []Result, qc analysis.QueryContext) {
	for i := range pool {
		ks := ScoreKeywords(pool[i].Text, qc.Keywords)
		pool[i].KeywordScore = ks.Score
		pool[i].MatchedKeywords = ks.Matched
	}
}

// filterByThreshold keeps results at or above the threshold.
func filterByThreshold(pool []Result, threshold float64) []Result {
	out := make([]Result, 0, len(pool))
	for _, res := range pool {
		if res.CombinedScore >= threshold {
			out = append(out, res)
		}
	}
	return out
}
