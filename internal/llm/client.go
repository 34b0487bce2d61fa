// Package llm wraps the chat-completions provider used for answer
// synthesis.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/observability"
)

// Completer generates a completion from a system and a user prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries one synthesis call.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Config holds LLM client configuration.
type Config struct {
	APIKey      string
	Model       string // e.g. "google/gemini-2.5-flash"
	BaseURL     string // default https://openrouter.ai/api/v1
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Client calls an OpenRouter-compatible chat-completions endpoint with
// a single retry on retryable upstream statuses.
type Client struct {
	logger     *observability.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	defaults   Config
}

// NewClient creates an LLM client, backfilling defaults.
func NewClient(logger *observability.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, enginerr.Configuration("LLM API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Client{
		logger:     logger.WithOperation("llm"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		defaults:   cfg,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the prompts and returns the generated text. An empty
// completion from the upstream is an error.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.defaults.MaxTokens
	}
	if req.Temperature <= 0 {
		req.Temperature = c.defaults.Temperature
	}

	var messages []message
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}
	messages = append(messages, message{Role: "user", Content: req.User})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", enginerr.Internal("llm", "marshal request", err)
	}

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", enginerr.Transient("llm", "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != nil {
			return "", statusError(resp.StatusCode,
				fmt.Sprintf("%s (type %s)", apiErr.Error.Message, apiErr.Error.Type))
		}
		return "", statusError(resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", enginerr.Hard("llm", "unmarshal response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", enginerr.Hard("llm", "no completion choices returned", nil)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", enginerr.Hard("llm", "empty completion", nil)
	}

	return content, nil
}

// doWithRetry executes the request, retrying once with a short backoff
// on retryable statuses and transport errors.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	const maxRetries = 1
	backoff := time.Second

	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn().
				Int("attempt", attempt).
				Int("last_status", lastStatus).
				Msg("Retrying completion request")

			select {
			case <-ctx.Done():
				return nil, enginerr.Transient("llm", "context cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, enginerr.Internal("llm", "create request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, enginerr.Transient("llm", "context cancelled", ctx.Err())
			}
			lastStatus = 0
			if attempt == maxRetries {
				return nil, enginerr.Transient("llm", "send request", err)
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

	return nil, enginerr.Transient("llm",
		fmt.Sprintf("request failed after %d retries (last status %d)", maxRetries, lastStatus), nil)
}

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
		return enginerr.Transient("llm", msg, nil)
	}
	return enginerr.Hard("llm", msg, nil)
}

var _ Completer = (*Client)(nil)
