// Package embedding adapts the external embedding provider behind a
// small interface the retrieval and ingestion pipelines share.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/observability"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// Config holds embedding client configuration.
type Config struct {
	APIKey    string
	Model     string // e.g. "google/gemini-embedding-001"
	BaseURL   string // default https://openrouter.ai/api/v1
	Dimension int
	Timeout   time.Duration
}

// Client calls an OpenRouter-compatible embeddings endpoint. Responses
// are validated against the configured dimension: a wrong-size or
// all-zero vector is an error, never silently accepted.
type Client struct {
	logger     *observability.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimension  int
}

// NewClient creates an embedding client, backfilling defaults.
func NewClient(logger *observability.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, enginerr.Configuration("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "google/gemini-embedding-001"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Client{
		logger:     logger.WithOperation("embedding"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates embeddings for the given texts in one batch call,
// retrying once on retryable upstream status codes.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, enginerr.Internal("embedding", "marshal request", err)
	}

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, enginerr.Transient("embedding", "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr embeddingResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != nil {
			return nil, statusError(resp.StatusCode,
				fmt.Sprintf("%s (type %s)", apiErr.Error.Message, apiErr.Error.Type))
		}
		return nil, statusError(resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, enginerr.Hard("embedding", "unmarshal response", err)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range parsed.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}

	for i, vec := range vectors {
		if len(vec) != c.dimension {
			return nil, enginerr.Hard("embedding",
				fmt.Sprintf("vector %d has dimension %d, want %d", i, len(vec), c.dimension), nil)
		}
		if isZero(vec) {
			return nil, enginerr.Hard("embedding",
				fmt.Sprintf("vector %d is all zeros", i), nil)
		}
	}

	return vectors, nil
}

// doWithRetry executes the request, retrying once with a short backoff
// when the upstream answers with a retryable status.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	const maxRetries = 1
	backoff := time.Second

	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().
				Int("attempt", attempt).
				Int("last_status", lastStatus).
				Msg("Retrying embedding request")

			select {
			case <-ctx.Done():
				return nil, enginerr.Transient("embedding", "context cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, enginerr.Internal("embedding", "create request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, enginerr.Transient("embedding", "context cancelled", ctx.Err())
			}
			lastStatus = 0
			if attempt == maxRetries {
				return nil, enginerr.Transient("embedding", "send request", err)
			}
			continue
		}

		if retryableStatus(resp.StatusCode) && attempt < maxRetries {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, enginerr.Transient("embedding",
		fmt.Sprintf("request failed after %d retries (last status %d)", maxRetries, lastStatus), nil)
}

// Model returns the model in use.
func (c *Client) Model() string { return c.model }

// Dimension returns the declared embedding dimension.
func (c *Client) Dimension() int { return c.dimension }

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func statusError(code int, detail string) error {
	msg := fmt.Sprintf("upstream status %d: %s", code, detail)
	if retryableStatus(code) {
		return enginerr.Transient("embedding", msg, nil)
	}
	return enginerr.Hard("embedding", msg, nil)
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// MockClient produces deterministic pseudo-embeddings derived from a
// text hash. It exists for query-side development without an API key;
// its vectors are never meant to be written to a persistent index.
type MockClient struct {
	dimension int
}

// NewMockClient creates a deterministic mock embedder.
func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 1024
	}
	return &MockClient{dimension: dimension}
}

// Embed derives one normalized vector per text from an FNV hash chain.
// The same text always yields the same vector.
func (c *MockClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, c.dimension)

		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		state := h.Sum64()

		for j := range vec {
			state = state*6364136223846793005 + 1442695040888963407
			// Map the high bits onto [-1, 1).
			vec[j] = float32(int32(state>>32)) / float32(1<<31)
		}
		vectors[i] = normalize(vec)
	}
	return vectors, nil
}

// Model returns the mock model name.
func (c *MockClient) Model() string { return "mock-embedding" }

// Dimension returns the embedding dimension.
func (c *MockClient) Dimension() int { return c.dimension }

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}

var (
	_ Embedder = (*Client)(nil)
	_ Embedder = (*MockClient)(nil)
)
