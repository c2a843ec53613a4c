package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/edpassistant/edpassistant/internal/core"
)

const BaseURL = "https://openrouter.ai/api/v1"

// Message represents a chat message (OpenRouter/OpenAI format).
type Message = core.Message

// ChatRequest is the request body for chat completions.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// ChatResponse is the response from chat completions.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Role    string          `json:"role"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls the OpenRouter API. All outbound inference requests go through
// a weighted semaphore; pass the same limiter to every client in the process
// and the cap holds system-wide, no matter how many loops or tools are active.
type Client struct {
	APIKey  string
	Model   string
	HTTP    *http.Client
	Timeout time.Duration

	inflight *semaphore.Weighted

	// baseURL overrides BaseURL in tests.
	baseURL string
}

func (c *Client) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return BaseURL
}

// NewInflightLimiter returns a limiter capping simultaneous outbound
// inference requests at max. One limiter is meant to be shared by every
// client in the process.
func NewInflightLimiter(max int) *semaphore.Weighted {
	if max < 1 {
		max = 1
	}
	return semaphore.NewWeighted(int64(max))
}

// NewClient creates a client with the given API key and model. inflight caps
// simultaneous requests and may be shared across clients; timeout bounds each
// individual request.
func NewClient(apiKey, model string, inflight *semaphore.Weighted, timeout time.Duration) *Client {
	if inflight == nil {
		inflight = NewInflightLimiter(1)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		APIKey:   apiKey,
		Model:    model,
		HTTP:     http.DefaultClient,
		Timeout:  timeout,
		inflight: inflight,
	}
}

// parseContent parses API content that may be string, null, or array of parts
// (e.g. [{"type":"text","text":"..."}]).
func parseContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	// Try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Try array of parts with type+text
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			if p.Type == "text" {
				b.WriteString(p.Text)
			}
		}
		return b.String()
	}
	return parseContentArrayGeneric(raw)
}

// parseContentArrayGeneric extracts text from an array of objects that may
// have a "text" key (some providers omit the "type" discriminator).
func parseContentArrayGeneric(raw json.RawMessage) string {
	var parts []map[string]interface{}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p["text"].(string); ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

// ChatCompletion sends messages to OpenRouter and returns the assistant reply content.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("openrouter: API key not set")
	}
	if c.Model == "" {
		return "", fmt.Errorf("openrouter: model not set")
	}
	raw, err := json.Marshal(ChatRequest{Model: c.Model, Messages: messages})
	if err != nil {
		return "", err
	}
	bodyBytes, err := c.post(ctx, raw)
	if err != nil {
		return "", err
	}
	var out ChatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("openrouter: decode: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openrouter: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter: no choices in response")
	}
	rawContent := out.Choices[0].Message.Content
	content := parseContent(rawContent)
	if content == "" && len(rawContent) > 0 && rawContent[0] == '[' {
		content = parseContentArrayGeneric(rawContent)
	}
	return content, nil
}

// post sends one chat-completions request with the shared inflight limit, a
// per-request timeout, and exponential-backoff retries on transient errors
// (network, 5xx, 429). Non-2xx statuses other than those are returned as
// "openrouter: HTTP <code>" errors so callers can classify them.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.inflight.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	maxRetries := 3
	backoff := 1 * time.Second
	var resp *http.Response
	var lastErr error
	var bodyBytes []byte

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, lastErr = c.HTTP.Do(req)
		if lastErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("openrouter: request: %w", lastErr)
			}
			continue
		}

		bodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, fmt.Errorf("openrouter: request failed after %d retries: %w", maxRetries, lastErr)
	}
	if resp == nil {
		return nil, fmt.Errorf("openrouter: request failed after %d retries", maxRetries)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return bodyBytes, nil
}
