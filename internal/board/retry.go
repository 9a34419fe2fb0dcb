package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"boardroom/internal/gateway"
)

// retryPolicy bounds repeated gateway calls: per-call timeout plus an
// exponential backoff retry loop (base, 2x, 4x ...). Used by both the
// worker dispatch path and the arbiter call.
type retryPolicy struct {
	maxRetries  int
	baseDelay   time.Duration
	callTimeout time.Duration
}

// invoke runs one gateway call under the policy. The overall context
// governs cancellation: once it is done, no further attempts are made.
// Rate-limit errors honor the provider's Retry-After hint when present.
func (p retryPolicy) invoke(ctx context.Context, gw gateway.Invoker, prompt string, model gateway.ModelID, logger *zap.Logger) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt, lastErr)
			logger.Warn("gateway call retrying",
				zap.String("model", model.String()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
		}
		text, err := gw.Invoke(callCtx, prompt, model)
		cancel()

		if err == nil {
			return text, nil
		}
		lastErr = err

		// Overall cancellation is never retried.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("retries exhausted after %d attempts: %w", p.maxRetries+1, lastErr)
}

// dispatch runs one native batch call under the policy, mirroring
// invoke: same backoff, same Retry-After handling, no attempt after the
// overall context is done.
func (p retryPolicy) dispatch(ctx context.Context, gw gateway.BatchDispatcher, promptFile string, models []gateway.ModelID, logger *zap.Logger) ([]gateway.BatchResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt, lastErr)
			logger.Warn("batch dispatch retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
		}
		slots, err := gw.Dispatch(callCtx, promptFile, models)
		cancel()

		if err == nil {
			return slots, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("retries exhausted after %d attempts: %w", p.maxRetries+1, lastErr)
}

// backoff computes the delay before the given attempt (1-based).
func (p retryPolicy) backoff(attempt int, lastErr error) time.Duration {
	base := p.baseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := base << uint(attempt-1)

	var rl *gateway.RateLimitError
	if errors.As(lastErr, &rl) && rl.RetryAfter > delay {
		return rl.RetryAfter
	}
	return delay
}
