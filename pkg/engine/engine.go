// Package engine wires the answer engine end to end: ingestion,
// analysis, hybrid retrieval, and response assembly behind one facade.
// It is the only entry point the API server and the CLI use.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/insurelex/answer-engine/internal/analysis"
	"github.com/insurelex/answer-engine/internal/cache"
	"github.com/insurelex/answer-engine/internal/config"
	"github.com/insurelex/answer-engine/internal/embedding"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/ingest"
	"github.com/insurelex/answer-engine/internal/llm"
	"github.com/insurelex/answer-engine/internal/monitoring"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/internal/response"
	"github.com/insurelex/answer-engine/internal/retrieval"
	"github.com/insurelex/answer-engine/internal/storage"
)

// Engine is the assembled answer engine.
type Engine struct {
	logger    *observability.Logger
	cfg       *config.Config
	analyzer  *analysis.Analyzer
	retriever *retrieval.Retriever
	assembler *response.Assembler
	pipeline  *ingest.Pipeline
	store     *storage.Store
	index     retrieval.VectorIndex
	cache     cache.Client
	audit     *monitoring.AuditWriter
}

// QueryRequest is one question against the indexed corpus.
type QueryRequest struct {
	Question      string
	TopK          int
	BaseThreshold float64
	Filter        map[string]string
}

// New builds an engine from configuration. The vector index lives in
// memory; restart recovery is re-ingestion from the document store.
func New(logger *observability.Logger, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = observability.Nop()
	}

	store, err := storage.Open(logger, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	index, err := retrieval.NewMemoryIndex(retrieval.MemoryIndexConfig{
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	embedder, err := buildEmbedder(logger, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	completer, err := llm.NewClient(logger, llm.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	queryCache, err := buildCache(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	guard, err := monitoring.NewVectorGuard(logger, cfg.Embedding.Dimension)
	if err != nil {
		store.Close()
		return nil, err
	}

	audit := monitoring.NewAuditWriter(logger)
	analyzer := analysis.NewAnalyzer(logger)

	retriever := retrieval.NewRetriever(logger, index, embedder,
		retrieval.NewAnchoring(logger, index, retrieval.AnchoringConfig{
			MaxScanRecords: cfg.Retrieval.MaxKeywordSearchVectors,
			MaxResults:     cfg.Retrieval.MaxKeywordResults,
		}),
		retrieval.NewReranker(analyzer),
		retrieval.Config{
			Thresholds: retrieval.Thresholds{
				Min:    cfg.Retrieval.MinSimilarityThreshold,
				Medium: cfg.Retrieval.MediumSimilarityThreshold,
				High:   cfg.Retrieval.HighSimilarityThreshold,
			},
			AdaptiveThreshold:      cfg.Retrieval.AdaptiveThreshold,
			MinResultsRequired:     cfg.Retrieval.MinResultsRequired,
			EnableHybridSearch:     cfg.Retrieval.EnableHybridSearch,
			SemanticWeight:         cfg.Retrieval.SemanticWeight,
			KeywordWeight:          cfg.Retrieval.KeywordWeight,
			EnableKeywordAnchoring: cfg.Retrieval.EnableKeywordAnchoring,
			EnableQueryEnhancement: cfg.Retrieval.EnableQueryEnhancement,
			MaxQueryVariants:       cfg.Retrieval.MaxQueryVariants,
			CandidatesPerVariant:   cfg.Retrieval.CandidatesPerVariant,
			MaxKeywordScanRecords:  cfg.Retrieval.MaxKeywordSearchVectors,
		})

	pipeline := ingest.NewPipeline(logger,
		ingest.NewChunker(ingest.ChunkerConfig{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		}),
		store, embedder, index, guard, audit)

	return &Engine{
		logger:    logger.WithOperation("engine"),
		cfg:       cfg,
		analyzer:  analyzer,
		retriever: retriever,
		assembler: response.NewAssembler(logger, completer, response.Config{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}),
		pipeline: pipeline,
		store:    store,
		index:    index,
		cache:    queryCache,
		audit:    audit,
	}, nil
}

func buildEmbedder(logger *observability.Logger, cfg *config.Config) (embedding.Embedder, error) {
	if cfg.Embedding.MockMode {
		return embedding.NewMockClient(cfg.Embedding.Dimension), nil
	}
	return embedding.NewClient(logger, embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
}

func buildCache(cfg *config.Config) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "redis":
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	case "memory":
		return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
	case "none":
		return nil, nil
	default:
		return nil, enginerr.Configuration(
			fmt.Sprintf("unknown cache driver %q", cfg.Cache.Driver))
	}
}

// Ingest adds or replaces a document.
func (e *Engine) Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error) {
	result, err := e.pipeline.Ingest(ctx, req)
	if err != nil {
		return nil, err
	}

	// A changed corpus invalidates every cached answer.
	if e.cache != nil {
		if cerr := e.cache.DeleteByPrefix(ctx, "query:"); cerr != nil {
			e.logger.Warn().Err(cerr).Msg("Query cache invalidation failed")
		}
	}
	return result, nil
}

// DeleteDocument removes a document from the store and index.
func (e *Engine) DeleteDocument(ctx context.Context, docID string) error {
	if err := e.pipeline.Delete(ctx, docID); err != nil {
		return err
	}
	if e.cache != nil {
		if cerr := e.cache.DeleteByPrefix(ctx, "query:"); cerr != nil {
			e.logger.Warn().Err(cerr).Msg("Query cache invalidation failed")
		}
	}
	return nil
}

// Analyze classifies a question without running retrieval.
func (e *Engine) Analyze(question string) analysis.QueryContext {
	return e.analyzer.Analyze(question)
}

// ListDocuments returns the ingested corpus, most recent first.
func (e *Engine) ListDocuments(ctx context.Context) ([]storage.Document, error) {
	return e.store.ListDocuments(ctx)
}

// Query answers one question. The envelope is non-nil whenever the
// query passed validation: downstream failures come back as an
// error-type envelope together with the underlying error, so transports
// can map a status code and still serve the body.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*response.StructuredResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, enginerr.Validation("query", "question is empty")
	}
	if max := e.cfg.Query.MaxLength; max > 0 && len(question) > max {
		return nil, enginerr.Validation("query",
			fmt.Sprintf("question exceeds %d characters", max))
	}
	if req.TopK <= 0 {
		req.TopK = e.cfg.Query.DefaultTopK
	}
	if req.BaseThreshold <= 0 {
		req.BaseThreshold = e.cfg.Retrieval.MinSimilarityThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryDeadline())
	defer cancel()

	started := time.Now()
	qc := e.analyzer.Analyze(question)
	key := cache.QueryKey(qc.Normalized, req.TopK, req.BaseThreshold, req.Filter)

	if cached := e.cacheGet(ctx, key); cached != nil {
		e.logger.WithContext(ctx).Debug().
			Str("cache_key", key).
			Msg("Query served from cache")
		e.audit.WriteQuery(ctx, cached.ResponseID, question, string(qc.Intent),
			"cache", 0, len(cached.Sources), time.Since(started))
		return cached, nil
	}

	outcome, err := e.retriever.Retrieve(ctx, qc, retrieval.Options{
		TopK:          req.TopK,
		BaseThreshold: req.BaseThreshold,
		Filter:        retrieval.Filter(req.Filter),
	})
	if err != nil {
		return e.assembler.Error(qc, enginerr.StageOf(err), err), err
	}

	var envelope *response.StructuredResponse
	if len(outcome.Results) == 0 {
		envelope = e.assembler.NoResults(qc, outcome)
	} else {
		envelope = e.assembler.Assemble(ctx, qc, outcome)
	}

	e.audit.WriteQuery(ctx, envelope.ResponseID, question, string(qc.Intent),
		outcome.Method, outcome.ThresholdUsed, len(outcome.Results), time.Since(started))

	if envelope.ResponseType != response.TypeError {
		e.cacheSet(ctx, key, envelope)
	}
	return envelope, nil
}

func (e *Engine) cacheGet(ctx context.Context, key string) *response.StructuredResponse {
	if e.cache == nil {
		return nil
	}
	data, err := e.cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}
	var envelope response.StructuredResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil
	}
	return &envelope
}

func (e *Engine) cacheSet(ctx context.Context, key string, envelope *response.StructuredResponse) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.cfg.Cache.TTL); err != nil {
		e.logger.Warn().Err(err).Msg("Query cache write failed")
	}
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	var first error
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			first = err
		}
	}
	if err := e.index.Close(); err != nil && first == nil {
		first = err
	}
	if err := e.store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
