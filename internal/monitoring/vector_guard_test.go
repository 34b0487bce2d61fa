package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/retrieval"
)

func goodRecord(id string) retrieval.Record {
	return retrieval.Record{
		ID:     id,
		DocID:  "pol",
		Vector: []float32{0.5, 0.5, 0.5, 0.5},
		Metadata: map[string]interface{}{
			"doc_id": "pol",
			"text":   "Clause 4.2: exclusions.",
		},
	}
}

func TestNewVectorGuard_RejectsNonPositiveDimension(t *testing.T) {
	_, err := NewVectorGuard(nil, 0)
	require.Error(t, err)
	assert.Equal(t, enginerr.KindConfiguration, enginerr.KindOf(err))
}

func TestVectorGuard_AcceptsValidBatch(t *testing.T) {
	g, err := NewVectorGuard(nil, 4)
	require.NoError(t, err)

	require.NoError(t, g.CheckBatch([]retrieval.Record{goodRecord("pol:1"), goodRecord("pol:2")}))

	accepted, rejected := g.Stats()
	assert.Equal(t, int64(2), accepted)
	assert.Zero(t, rejected)
}

func TestVectorGuard_RejectsDimensionMismatch(t *testing.T) {
	g, err := NewVectorGuard(nil, 4)
	require.NoError(t, err)

	bad := goodRecord("pol:2")
	bad.Vector = []float32{1, 0}

	err = g.CheckBatch([]retrieval.Record{goodRecord("pol:1"), bad})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindValidation, enginerr.KindOf(err))
	assert.Contains(t, err.Error(), "dimension")

	// One bad record condemns the whole batch.
	accepted, rejected := g.Stats()
	assert.Zero(t, accepted)
	assert.Equal(t, int64(2), rejected)
}

func TestVectorGuard_RejectsZeroVector(t *testing.T) {
	g, err := NewVectorGuard(nil, 4)
	require.NoError(t, err)

	bad := goodRecord("pol:1")
	bad.Vector = []float32{0, 0, 0, 0}

	err = g.CheckBatch([]retrieval.Record{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all-zero")
}

func TestVectorGuard_RejectsUnsupportedMetadata(t *testing.T) {
	g, err := NewVectorGuard(nil, 4)
	require.NoError(t, err)

	bad := goodRecord("pol:1")
	bad.Metadata["nested"] = map[string]int{"depth": 2}

	require.Error(t, g.CheckBatch([]retrieval.Record{bad}))
}
