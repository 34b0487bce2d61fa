package monitoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/insurelex/answer-engine/internal/observability"
)

// AuditWriter records per-request audit events to the structured log.
// It is a write-only sink: nothing in the query path reads it back.
type AuditWriter struct {
	logger *observability.Logger
}

// AuditEvent is one auditable action.
type AuditEvent struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	ResourceID string                 `json:"resource_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Audit actions.
const (
	ActionIngest = "ingest"
	ActionQuery  = "query"
	ActionDelete = "delete"
)

// NewAuditWriter creates an audit writer.
func NewAuditWriter(logger *observability.Logger) *AuditWriter {
	if logger == nil {
		logger = observability.Nop()
	}
	return &AuditWriter{logger: logger.WithOperation("audit")}
}

// Write records an audit event, backfilling ID and timestamp.
func (a *AuditWriter) Write(ctx context.Context, event AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	entry := a.logger.WithContext(ctx).Info().
		Str("event_id", event.ID).
		Str("action", event.Action).
		Str("resource_id", event.ResourceID).
		Str("occurred_at", event.OccurredAt.Format(time.RFC3339Nano))

	for key, value := range event.Payload {
		entry = entry.Interface(key, value)
	}

	entry.Msg("Audit event")
}

// WriteIngest records a document ingestion.
func (a *AuditWriter) WriteIngest(ctx context.Context, docID string, chunksWritten int, warnings []string) {
	a.Write(ctx, AuditEvent{
		Action:     ActionIngest,
		ResourceID: docID,
		Payload: map[string]interface{}{
			"chunks_written": chunksWritten,
			"warnings":       warnings,
		},
	})
}

// WriteQuery records one answered query.
func (a *AuditWriter) WriteQuery(ctx context.Context, responseID, question, intent, method string, thresholdUsed float64, resultCount int, latency time.Duration) {
	a.Write(ctx, AuditEvent{
		Action:     ActionQuery,
		ResourceID: responseID,
		Payload: map[string]interface{}{
			"question":       question,
			"intent":         intent,
			"method":         method,
			"threshold_used": thresholdUsed,
			"result_count":   resultCount,
			"latency_ms":     latency.Milliseconds(),
		},
	})
}

// WriteDelete records a document deletion.
func (a *AuditWriter) WriteDelete(ctx context.Context, docID string) {
	a.Write(ctx, AuditEvent{Action: ActionDelete, ResourceID: docID})
}
