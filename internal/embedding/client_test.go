package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingBody(vectors ...[]float32) string {
	body := `{"data":[`
	for i, vec := range vectors {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"index":%d,"embedding":[`, i)
		for j, v := range vec {
			if j > 0 {
				body += ","
			}
			body += fmt.Sprintf("%g", v)
		}
		body += "]}"
	}
	return body + "]}"
}

func newTestClient(t *testing.T, url string, dimension int) *Client {
	t.Helper()
	c, err := NewClient(nil, Config{APIKey: "test-key", BaseURL: url, Dimension: dimension})
	require.NoError(t, err)
	return c
}

func TestClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(nil, Config{})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindConfiguration, enginerr.KindOf(err))
}

func TestClient_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, embeddingBody([]float32{1, 0, 0}, []float32{0, 1, 0}))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	vectors, err := c.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
}

func TestClient_RetriesOnceOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, embeddingBody([]float32{1, 0, 0}))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	vectors, err := c.Embed(context.Background(), []string{"q"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ExhaustedRetriesAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	_, err := c.Embed(context.Background(), []string{"q"})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindTransientExternal, enginerr.KindOf(err))
	assert.True(t, enginerr.Retryable(err))
}

func TestClient_BadRequestIsHard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad input","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	_, err := c.Embed(context.Background(), []string{"q"})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindHardExternal, enginerr.KindOf(err))
	assert.False(t, enginerr.Retryable(err))
}

func TestClient_RejectsWrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, embeddingBody([]float32{1, 0}))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	_, err := c.Embed(context.Background(), []string{"q"})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindHardExternal, enginerr.KindOf(err))
}

func TestClient_RejectsZeroVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, embeddingBody([]float32{0, 0, 0}))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)

	_, err := c.Embed(context.Background(), []string{"q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zeros")
}

func TestClient_EmptyInputShortCircuits(t *testing.T) {
	c := newTestClient(t, "http://unreachable.invalid", 3)

	vectors, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestMockClient_Deterministic(t *testing.T) {
	m := NewMockClient(64)

	first, err := m.Embed(context.Background(), []string{"waiting period", "exclusions"})
	require.NoError(t, err)
	second, err := m.Embed(context.Background(), []string{"waiting period", "exclusions"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
}

func TestMockClient_VectorsAreUnitLength(t *testing.T) {
	m := NewMockClient(32)

	vectors, err := m.Embed(context.Background(), []string{"any text"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Len(t, vectors[0], 32)

	var sum float64
	for _, v := range vectors[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}
