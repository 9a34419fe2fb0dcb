package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
// The requested ModelID's model half is forwarded as the "model" field;
// routing by provider is the endpoint's concern (multi-provider gateways
// accept the fully qualified identifier, so Invoke sends provider:model
// verbatim when the gateway declares itself provider-agnostic).
type HTTPClient struct {
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	qualified   bool // send provider:model instead of bare model name
	httpClient  *http.Client

	mu          sync.Mutex
	lastRequest time.Time
	minGap      time.Duration
}

// HTTPConfig holds configuration for the HTTP gateway client.
type HTTPConfig struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// QualifiedModels sends the full provider:model identifier to the
	// endpoint (OpenRouter-style gateways) instead of the bare model name.
	QualifiedModels bool
	// MinRequestGap is the minimum spacing between outbound requests.
	MinRequestGap time.Duration
}

// DefaultHTTPConfig returns sensible defaults.
func DefaultHTTPConfig(apiKey string) HTTPConfig {
	return HTTPConfig{
		APIKey:        apiKey,
		BaseURL:       "https://api.openai.com/v1",
		Timeout:       120 * time.Second,
		MaxTokens:     4096,
		Temperature:   0.2,
		MinRequestGap: 500 * time.Millisecond,
	}
}

// NewHTTPClient creates a new HTTP gateway client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &HTTPClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		qualified:   cfg.QualifiedModels,
		minGap:      cfg.MinRequestGap,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatRequest represents the API request structure.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatMessage represents a message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the API response structure.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Invoke sends a single prompt to one model and returns the completion
// text. A 429 response surfaces as *RateLimitError so callers can apply
// their own backoff policy; the client itself performs a single attempt.
func (c *HTTPClient) Invoke(ctx context.Context, prompt string, model ModelID) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	c.throttle()

	name := model.Name
	if c.qualified {
		name = model.String()
	}

	reqBody := chatRequest{
		Model: name,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{
			Provider:    model.Provider,
			RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			RawResponse: string(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gateway error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// throttle enforces the minimum spacing between outbound requests.
func (c *HTTPClient) throttle() {
	if c.minGap <= 0 {
		return
	}
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minGap {
		time.Sleep(c.minGap - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

// parseRetryAfter reads a Retry-After header value in seconds form.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
