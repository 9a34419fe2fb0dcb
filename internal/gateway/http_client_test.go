package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testHTTPClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
}

func TestHTTPClient_Invoke(t *testing.T) {
	t.Parallel()

	model := ModelID{Provider: "openai", Name: "gpt-4o"}

	t.Run("successful completion", func(t *testing.T) {
		var gotReq chatRequest
		client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("path = %q, want /chat/completions", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("Authorization = %q, want Bearer test-key", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"  the answer  "}}]}`))
		})

		got, err := client.Invoke(context.Background(), "question", model)
		if err != nil {
			t.Fatalf("Invoke() error: %v", err)
		}
		if got != "the answer" {
			t.Errorf("Invoke() = %q, want %q", got, "the answer")
		}
		if gotReq.Model != "gpt-4o" {
			t.Errorf("request model = %q, want bare name gpt-4o", gotReq.Model)
		}
		if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "question" {
			t.Errorf("request messages = %+v, want single user message", gotReq.Messages)
		}
	})

	t.Run("qualified models send provider prefix", func(t *testing.T) {
		var gotModel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req chatRequest
			json.NewDecoder(r.Body).Decode(&req)
			gotModel = req.Model
			w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		}))
		defer srv.Close()

		client := NewHTTPClient(HTTPConfig{
			APIKey:          "test-key",
			BaseURL:         srv.URL,
			QualifiedModels: true,
		})
		if _, err := client.Invoke(context.Background(), "q", model); err != nil {
			t.Fatalf("Invoke() error: %v", err)
		}
		if gotModel != "openai:gpt-4o" {
			t.Errorf("request model = %q, want openai:gpt-4o", gotModel)
		}
	})

	t.Run("429 yields RateLimitError with retry hint", func(t *testing.T) {
		client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
		})

		_, err := client.Invoke(context.Background(), "q", model)
		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("Invoke() error = %v, want *RateLimitError", err)
		}
		if rl.Provider != "openai" {
			t.Errorf("Provider = %q, want openai", rl.Provider)
		}
		if rl.RetryAfter != 30*time.Second {
			t.Errorf("RetryAfter = %v, want 30s", rl.RetryAfter)
		}
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		})

		_, err := client.Invoke(context.Background(), "q", model)
		if err == nil {
			t.Fatal("Invoke() = nil error, want failure on 500")
		}
		if !strings.Contains(err.Error(), "500") {
			t.Errorf("error %q does not mention the status code", err)
		}
	})

	t.Run("embedded error object", func(t *testing.T) {
		client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"model unavailable","type":"invalid_request"}}`))
		})

		_, err := client.Invoke(context.Background(), "q", model)
		if err == nil || !strings.Contains(err.Error(), "model unavailable") {
			t.Errorf("Invoke() error = %v, want embedded gateway error", err)
		}
	})

	t.Run("no choices is an error", func(t *testing.T) {
		client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"c1","choices":[]}`))
		})

		_, err := client.Invoke(context.Background(), "q", model)
		if err == nil || !strings.Contains(err.Error(), "no completion") {
			t.Errorf("Invoke() error = %v, want no-completion failure", err)
		}
	})

	t.Run("missing API key fails before dialing", func(t *testing.T) {
		client := NewHTTPClient(HTTPConfig{BaseURL: "http://127.0.0.1:1"})
		_, err := client.Invoke(context.Background(), "q", model)
		if err == nil || !strings.Contains(err.Error(), "API key") {
			t.Errorf("Invoke() error = %v, want API key error", err)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{" 5 ", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.input); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDefaultHTTPConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultHTTPConfig("k")
	if cfg.APIKey != "k" {
		t.Errorf("APIKey = %q, want k", cfg.APIKey)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", cfg.Timeout)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.MaxTokens)
	}
}
