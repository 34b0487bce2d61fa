package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurelex/answer-engine/internal/embedding"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/monitoring"
	"github.com/insurelex/answer-engine/internal/retrieval"
	"github.com/insurelex/answer-engine/internal/storage"
)

// failingEmbedder breaks the pipeline mid-flight so rollback behavior
// can be observed.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, enginerr.Transient("embedding", "upstream unavailable", errors.New("503"))
}
func (failingEmbedder) Model() string  { return "failing" }
func (failingEmbedder) Dimension() int { return 4 }

func newTestPipeline(t *testing.T) (*Pipeline, *storage.Store, *retrieval.MemoryIndex) {
	t.Helper()

	store, err := storage.Open(nil, filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	idx, err := retrieval.NewMemoryIndex(retrieval.MemoryIndexConfig{Dimension: 4})
	require.NoError(t, err)

	guard, err := monitoring.NewVectorGuard(nil, 4)
	require.NoError(t, err)

	p := NewPipeline(nil, NewChunker(ChunkerConfig{}), store, embedding.NewMockClient(4),
		idx, guard, monitoring.NewAuditWriter(nil))
	return p, store, idx
}

func TestPipeline_IngestPolicyDocument(t *testing.T) {
	p, store, idx := newTestPipeline(t)
	ctx := context.Background()

	result, err := p.Ingest(ctx, Request{
		DocID:   "pol",
		Title:   "Health Policy",
		DocType: "policy",
		Text:    policyText,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ChunksWritten)
	assert.Equal(t, MethodPolicySection, result.Method)
	assert.Empty(t, result.Warnings)

	doc, err := store.GetDocument(ctx, "pol")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.ChunkCount)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
}

func TestPipeline_ReingestReplacesEveryChunk(t *testing.T) {
	p, store, idx := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Request{DocID: "pol", Title: "v1", DocType: "policy", Text: policyText})
	require.NoError(t, err)

	shorter := `1.1 COVERAGE
Hospitalization covered.

1.3 RENEWAL
Renewable for life.`

	result, err := p.Ingest(ctx, Request{DocID: "pol", Title: "v2", DocType: "policy", Text: shorter})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksWritten)

	chunks, err := store.ListChunks(ctx, "pol")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "pol:section_1.1", chunks[0].ChunkID)
	assert.Equal(t, "pol:section_1.3", chunks[1].ChunkID)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)

	doc, err := store.GetDocument(ctx, "pol")
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.Title)
}

func TestPipeline_ShortDocumentWarns(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	result, err := p.Ingest(context.Background(), Request{
		DocID: "memo", Title: "Memo", DocType: "memo",
		Text: "The premium is due on the first.",
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "short")
}

func TestPipeline_ValidationErrors(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Request{Title: "no id", Text: "body"})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindValidation, enginerr.KindOf(err))

	_, err = p.Ingest(ctx, Request{DocID: "pol", Text: "   "})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindValidation, enginerr.KindOf(err))
}

func TestPipeline_EmbedderFailureLeavesNothingBehind(t *testing.T) {
	store, err := storage.Open(nil, filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	idx, err := retrieval.NewMemoryIndex(retrieval.MemoryIndexConfig{Dimension: 4})
	require.NoError(t, err)

	p := NewPipeline(nil, nil, store, failingEmbedder{}, idx, nil, nil)
	ctx := context.Background()

	_, err = p.Ingest(ctx, Request{DocID: "pol", DocType: "policy", Text: policyText})
	require.Error(t, err)
	assert.True(t, enginerr.Retryable(err))

	_, err = store.GetDocument(ctx, "pol")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
}

func TestPipeline_Delete(t *testing.T) {
	p, store, idx := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Request{DocID: "pol", DocType: "policy", Text: policyText})
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx, "pol"))

	_, err = store.GetDocument(ctx, "pol")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)

	assert.ErrorIs(t, p.Delete(ctx, "pol"), storage.ErrNotFound)
}
