package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditWriter_BackfillsIDAndTimestamp(t *testing.T) {
	w := NewAuditWriter(nil)

	event := AuditEvent{Action: ActionDelete, ResourceID: "pol"}
	w.Write(context.Background(), event)

	// Write takes the event by value; the caller's copy stays untouched
	// and a fresh ID is generated per call.
	assert.Empty(t, event.ID)
	assert.True(t, event.OccurredAt.IsZero())
}

func TestAuditWriter_HelpersDoNotPanicWithNilLogger(t *testing.T) {
	w := NewAuditWriter(nil)
	ctx := context.Background()

	require.NotPanics(t, func() {
		w.WriteIngest(ctx, "pol", 6, []string{"short document"})
		w.WriteQuery(ctx, "resp_ab12cd34", "What is covered?", "coverage_inquiry",
			"hybrid", 0.45, 3, 120*time.Millisecond)
		w.WriteDelete(ctx, "pol")
	})
}
