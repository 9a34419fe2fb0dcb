package board

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"boardroom/internal/gateway"
)

func TestRetryPolicy_Invoke(t *testing.T) {
	t.Parallel()

	model := mustModel(t, "openai:gpt-4o")

	t.Run("first attempt succeeds", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			return "done", nil
		})
		p := retryPolicy{maxRetries: 3, baseDelay: time.Millisecond}

		got, err := p.invoke(context.Background(), gw, "q", model, zap.NewNop())
		if err != nil {
			t.Fatalf("invoke() error: %v", err)
		}
		if got != "done" {
			t.Errorf("invoke() = %q, want done", got)
		}
		if n := gw.callCount(model.String()); n != 1 {
			t.Errorf("call count = %d, want 1", n)
		}
	})

	t.Run("transient failure retried to success", func(t *testing.T) {
		var attempts int32
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return "", errors.New("transient")
			}
			return "eventually", nil
		})
		p := retryPolicy{maxRetries: 3, baseDelay: time.Millisecond}

		got, err := p.invoke(context.Background(), gw, "q", model, zap.NewNop())
		if err != nil {
			t.Fatalf("invoke() error: %v", err)
		}
		if got != "eventually" {
			t.Errorf("invoke() = %q, want eventually", got)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("retries exhausted", func(t *testing.T) {
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			return "", errors.New("persistent failure")
		})
		p := retryPolicy{maxRetries: 2, baseDelay: time.Millisecond}

		_, err := p.invoke(context.Background(), gw, "q", model, zap.NewNop())
		if err == nil {
			t.Fatal("invoke() = nil error, want exhaustion")
		}
		if !strings.Contains(err.Error(), "retries exhausted after 3 attempts") {
			t.Errorf("error = %v, want exhaustion message with attempt count", err)
		}
		if !strings.Contains(err.Error(), "persistent failure") {
			t.Errorf("error = %v, want wrapped cause", err)
		}
		if n := gw.callCount(model.String()); n != 3 {
			t.Errorf("call count = %d, want 3 (initial + 2 retries)", n)
		}
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gw := newStubGateway(func(prompt string, m gateway.ModelID) (string, error) {
			cancel()
			return "", errors.New("failed")
		})
		p := retryPolicy{maxRetries: 5, baseDelay: time.Minute}

		_, err := p.invoke(ctx, gw, "q", model, zap.NewNop())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("invoke() error = %v, want context.Canceled", err)
		}
		if n := gw.callCount(model.String()); n != 1 {
			t.Errorf("call count = %d, want 1 (no retry after cancellation)", n)
		}
	})
}

func TestRetryPolicy_Backoff(t *testing.T) {
	t.Parallel()

	p := retryPolicy{baseDelay: 100 * time.Millisecond}

	t.Run("exponential growth", func(t *testing.T) {
		wants := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
		for i, want := range wants {
			if got := p.backoff(i+1, errors.New("x")); got != want {
				t.Errorf("backoff(%d) = %v, want %v", i+1, got, want)
			}
		}
	})

	t.Run("rate limit hint wins when larger", func(t *testing.T) {
		rl := &gateway.RateLimitError{Provider: "openai", RetryAfter: 2 * time.Second}
		if got := p.backoff(1, rl); got != 2*time.Second {
			t.Errorf("backoff(1, rate-limited) = %v, want 2s", got)
		}
	})

	t.Run("computed delay wins when larger than hint", func(t *testing.T) {
		rl := &gateway.RateLimitError{Provider: "openai", RetryAfter: 50 * time.Millisecond}
		if got := p.backoff(3, rl); got != 400*time.Millisecond {
			t.Errorf("backoff(3, small hint) = %v, want 400ms", got)
		}
	})

	t.Run("zero base falls back to one second", func(t *testing.T) {
		zero := retryPolicy{}
		if got := zero.backoff(1, errors.New("x")); got != time.Second {
			t.Errorf("backoff(1) with zero base = %v, want 1s", got)
		}
	})
}
