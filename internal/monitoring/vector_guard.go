// Package monitoring provides vector write guardrails and query audit
// logging.
package monitoring

import (
	"fmt"
	"sync/atomic"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/internal/retrieval"
)

// VectorGuard validates embedding batches before they reach the index:
// dimension mismatches and all-zero vectors are rejected outright, so a
// degraded embedding provider can never poison the index.
type VectorGuard struct {
	logger    *observability.Logger
	dimension int

	accepted atomic.Int64
	rejected atomic.Int64
}

// NewVectorGuard creates a guard for the declared index dimension.
func NewVectorGuard(logger *observability.Logger, dimension int) (*VectorGuard, error) {
	if dimension <= 0 {
		return nil, enginerr.Configuration(
			fmt.Sprintf("vector guard dimension must be positive, got %d", dimension))
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &VectorGuard{
		logger:    logger.WithOperation("vector_guard"),
		dimension: dimension,
	}, nil
}

// CheckBatch validates every record in the batch. The whole batch is
// rejected on the first offending record; nothing from a bad batch may
// be written.
func (g *VectorGuard) CheckBatch(records []retrieval.Record) error {
	for _, rec := range records {
		if err := g.check(rec); err != nil {
			g.rejected.Add(int64(len(records)))
			g.logger.Warn().
				Str("record_id", rec.ID).
				Err(err).
				Msg("Vector batch rejected")
			return err
		}
	}
	g.accepted.Add(int64(len(records)))
	return nil
}

func (g *VectorGuard) check(rec retrieval.Record) error {
	if len(rec.Vector) != g.dimension {
		return enginerr.Validation("vector_guard",
			fmt.Sprintf("record %s: vector dimension %d, index expects %d",
				rec.ID, len(rec.Vector), g.dimension))
	}

	zero := true
	for _, v := range rec.Vector {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return enginerr.Validation("vector_guard",
			fmt.Sprintf("record %s: all-zero vector", rec.ID))
	}

	return retrieval.ValidateMetadata(rec.Metadata)
}

// Stats returns the cumulative accepted and rejected record counts.
func (g *VectorGuard) Stats() (accepted, rejected int64) {
	return g.accepted.Load(), g.rejected.Load()
}
