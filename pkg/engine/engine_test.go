package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurelex/answer-engine/internal/config"
	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/ingest"
	"github.com/insurelex/answer-engine/internal/response"
)

const testPolicy = `1.1 COVERAGE
Hospitalization expenses are covered up to the sum insured subject to
the policy terms.

1.2 EXCLUSIONS
Pre-existing diseases are excluded from coverage for twenty-four months
from inception. Clause 4.2 lists further exclusions.

2.1 DEDUCTIBLE
A deductible of five thousand applies per claim before any payout.`

// newTestEngine builds an engine with the mock embedder, a memory
// cache, and an LLM stub that counts completions.
func newTestEngine(t *testing.T, answer string) (*Engine, *atomic.Int32) {
	t.Helper()

	var completions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		completions.Add(1)
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, answer)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "engine.db")
	cfg.Embedding.MockMode = true
	cfg.Embedding.Dimension = 64
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = srv.URL

	e, err := New(nil, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	return e, &completions
}

func ingestTestPolicy(t *testing.T, e *Engine) {
	t.Helper()
	result, err := e.Ingest(context.Background(), ingest.Request{
		DocID:   "pol",
		Title:   "Health Policy",
		DocType: "policy",
		Text:    testPolicy,
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.ChunksWritten)
}

func TestEngine_QueryEndToEnd(t *testing.T) {
	e, completions := newTestEngine(t,
		"Pre-existing diseases are excluded for twenty-four months per clause 4.2.")
	ingestTestPolicy(t, e)

	envelope, err := e.Query(context.Background(), QueryRequest{
		Question: "What are the exclusions for pre-existing diseases?",
	})
	require.NoError(t, err)
	require.NotNil(t, envelope)

	assert.Equal(t, int32(1), completions.Load())
	assert.True(t, strings.HasPrefix(envelope.ResponseID, "resp_"))
	assert.Contains(t, envelope.Answer, "twenty-four months")
	assert.NotEqual(t, response.TypeError, envelope.ResponseType)
	assert.NotEmpty(t, envelope.Sources)
	assert.Equal(t, "exclusion", envelope.Query.Intent)
	assert.NotEmpty(t, envelope.Explainability.AuditTrail.StagesFired)
}

func TestEngine_QueryCacheHit(t *testing.T) {
	e, completions := newTestEngine(t, "The deductible is five thousand per claim.")
	ingestTestPolicy(t, e)
	ctx := context.Background()

	first, err := e.Query(ctx, QueryRequest{Question: "What is the deductible?"})
	require.NoError(t, err)

	// Same question modulo normalization must replay the envelope
	// without another completion.
	second, err := e.Query(ctx, QueryRequest{Question: "  What is the DEDUCTIBLE?  "})
	require.NoError(t, err)

	assert.Equal(t, int32(1), completions.Load())
	assert.Equal(t, first.ResponseID, second.ResponseID)
	assert.Equal(t, first.Answer, second.Answer)
}

func TestEngine_IngestInvalidatesCache(t *testing.T) {
	e, completions := newTestEngine(t, "Covered up to the sum insured.")
	ingestTestPolicy(t, e)
	ctx := context.Background()

	_, err := e.Query(ctx, QueryRequest{Question: "What is covered?"})
	require.NoError(t, err)
	require.Equal(t, int32(1), completions.Load())

	ingestTestPolicy(t, e)

	_, err = e.Query(ctx, QueryRequest{Question: "What is covered?"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), completions.Load())
}

func TestEngine_QueryValidation(t *testing.T) {
	e, completions := newTestEngine(t, "unused")

	_, err := e.Query(context.Background(), QueryRequest{Question: "   "})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindValidation, enginerr.KindOf(err))

	_, err = e.Query(context.Background(), QueryRequest{
		Question: strings.Repeat("x", 4001),
	})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindValidation, enginerr.KindOf(err))

	// Validation failures never reach the language model.
	assert.Zero(t, completions.Load())
}

func TestEngine_EmptyCorpusReturnsNoResults(t *testing.T) {
	e, completions := newTestEngine(t, "unused")

	envelope, err := e.Query(context.Background(), QueryRequest{
		Question: "What is the waiting period?",
	})
	require.NoError(t, err)
	require.NotNil(t, envelope)

	assert.Equal(t, response.TypeNoResults, envelope.ResponseType)
	assert.Zero(t, completions.Load())
	assert.Empty(t, envelope.Sources)
	assert.NotEmpty(t, envelope.Recommendations)
}

func TestEngine_DeleteDocument(t *testing.T) {
	e, _ := newTestEngine(t, "answer")
	ingestTestPolicy(t, e)
	ctx := context.Background()

	require.NoError(t, e.DeleteDocument(ctx, "pol"))

	docs, err := e.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	envelope, err := e.Query(ctx, QueryRequest{Question: "What is covered?"})
	require.NoError(t, err)
	assert.Equal(t, response.TypeNoResults, envelope.ResponseType)
}

func TestEngine_Analyze(t *testing.T) {
	e, _ := newTestEngine(t, "unused")

	qc := e.Analyze("What is the waiting period for maternity, and what are the exclusions?")

	assert.NotEqual(t, "low", string(qc.Complexity))
	assert.Len(t, qc.SubQuestions, 2)
	assert.NotEmpty(t, qc.MatchedCategories)
}
