package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/insurelex/answer-engine/internal/embedding"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/monitoring"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/internal/retrieval"
	"github.com/insurelex/answer-engine/internal/storage"
)

// embedBatchSize caps how many chunk texts go to the embedding provider
// in one request.
const embedBatchSize = 64

// Pipeline turns raw document text into embedded, indexed chunks. A
// successful ingest leaves the store and the index describing the same
// chunk set; a failed ingest leaves both untouched.
type Pipeline struct {
	logger   *observability.Logger
	chunker  *Chunker
	store    *storage.Store
	embedder embedding.Embedder
	index    retrieval.VectorIndex
	guard    *monitoring.VectorGuard
	audit    *monitoring.AuditWriter
}

// Request is one document to ingest. Re-using a DocID replaces the
// previous version of that document entirely.
type Request struct {
	DocID   string
	Title   string
	DocType string
	Text    string
}

// Result summarizes a completed ingestion.
type Result struct {
	DocID         string
	ChunksWritten int
	WordCount     int
	Method        ChunkMethod
	Warnings      []string
	Duration      time.Duration
}

// NewPipeline wires the ingestion pipeline. Store, embedder, and index
// are required; guard and audit may be nil.
func NewPipeline(
	logger *observability.Logger,
	chunker *Chunker,
	store *storage.Store,
	embedder embedding.Embedder,
	index retrieval.VectorIndex,
	guard *monitoring.VectorGuard,
	audit *monitoring.AuditWriter,
) *Pipeline {
	if logger == nil {
		logger = observability.Nop()
	}
	if chunker == nil {
		chunker = NewChunker(ChunkerConfig{})
	}
	return &Pipeline{
		logger:   logger.WithOperation("ingest"),
		chunker:  chunker,
		store:    store,
		embedder: embedder,
		index:    index,
		guard:    guard,
		audit:    audit,
	}
}

// Ingest chunks, embeds, persists, and indexes one document. The index
// swap happens last and atomically, so queries racing an ingest see
// either the old version or the new one, never a mix.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	chunks := p.chunker.Chunk(req.DocID, req.Title, req.DocType, req.Text)
	if len(chunks) == 0 {
		return nil, enginerr.Validation("ingest",
			fmt.Sprintf("document %s produced no chunks", req.DocID))
	}

	var warnings []string
	if len(chunks) == 1 && chunks[0].WordCount < 50 {
		warnings = append(warnings, "document is very short; retrieval quality may suffer")
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	records := make([]retrieval.Record, len(chunks))
	for i, c := range chunks {
		records[i] = retrieval.Record{
			ID:       c.ChunkID,
			DocID:    c.DocID,
			Vector:   vectors[i],
			Metadata: BuildMetadata(c),
		}
	}

	if p.guard != nil {
		if err := p.guard.CheckBatch(records); err != nil {
			return nil, err
		}
	}

	doc, rows := toStorageRows(req, chunks)
	if err := p.store.SaveDocument(ctx, doc, rows); err != nil {
		return nil, fmt.Errorf("persist document %s: %w", req.DocID, err)
	}

	if err := p.index.ReplaceDocument(ctx, req.DocID, records); err != nil {
		return nil, fmt.Errorf("index document %s: %w", req.DocID, err)
	}

	result := &Result{
		DocID:         req.DocID,
		ChunksWritten: len(chunks),
		WordCount:     doc.WordCount,
		Method:        chunks[0].Method,
		Warnings:      warnings,
		Duration:      time.Since(started),
	}

	if p.audit != nil {
		p.audit.WriteIngest(ctx, req.DocID, result.ChunksWritten, warnings)
	}

	p.logger.WithContext(ctx).Info().
		Str("doc_id", req.DocID).
		Str("doc_type", req.DocType).
		Str("method", string(result.Method)).
		Int("chunks", result.ChunksWritten).
		Int("words", result.WordCount).
		Dur("duration", result.Duration).
		Msg("Document ingested")

	return result, nil
}

// Delete removes a document from the store and the index.
func (p *Pipeline) Delete(ctx context.Context, docID string) error {
	if strings.TrimSpace(docID) == "" {
		return enginerr.Validation("ingest", "document id is required")
	}

	if err := p.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := p.index.DeleteByFilter(ctx, retrieval.Filter{"doc_id": docID}); err != nil {
		return fmt.Errorf("deindex document %s: %w", docID, err)
	}

	if p.audit != nil {
		p.audit.WriteDelete(ctx, docID)
	}

	p.logger.WithContext(ctx).Info().
		Str("doc_id", docID).
		Msg("Document deleted")
	return nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.DocID) == "" {
		return enginerr.Validation("ingest", "document id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return enginerr.Validation("ingest",
			fmt.Sprintf("document %s has no text", req.DocID))
	}
	return nil
}

// embedChunks embeds chunk texts in fixed-size batches, preserving
// chunk order.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d..%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, enginerr.Internal("ingest",
				fmt.Sprintf("embedder returned %d vectors for %d texts", len(batch), len(texts)), nil)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func toStorageRows(req Request, chunks []Chunk) (storage.Document, []storage.ChunkRow) {
	rows := make([]storage.ChunkRow, len(chunks))
	totalWords := 0
	for i, c := range chunks {
		totalWords += c.WordCount
		rows[i] = storage.ChunkRow{
			ChunkID:       c.ChunkID,
			DocID:         c.DocID,
			Position:      i,
			SectionAnchor: c.SectionAnchor,
			SectionTitle:  c.SectionTitle,
			Method:        string(c.Method),
			WordCount:     c.WordCount,
			LegalDensity:  c.LegalDensity,
			Text:          c.Text,
		}
	}

	doc := storage.Document{
		DocID:      req.DocID,
		Title:      req.Title,
		DocType:    req.DocType,
		ChunkCount: len(chunks),
		WordCount:  totalWords,
		IngestedAt: time.Now().UTC(),
	}
	return doc, rows
}
