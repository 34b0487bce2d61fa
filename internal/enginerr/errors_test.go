package enginerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("embedding", "embed request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindTransientExternal, KindOf(err))
	assert.Equal(t, "embedding", StageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf_ThroughFmtWrapping(t *testing.T) {
	inner := Hard("llm", "status 400", nil)
	wrapped := fmt.Errorf("query failed: %w", inner)

	assert.Equal(t, KindHardExternal, KindOf(wrapped))
	assert.Equal(t, "llm", StageOf(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", StageOf(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", Transient("index", "rate limited", nil), true},
		{"hard", Hard("index", "unauthorized", nil), false},
		{"validation", Validation("query", "empty question"), false},
		{"empty result", EmptyResult("retrieval"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
