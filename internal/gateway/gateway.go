// Package gateway models the external prompt gateway the board pipeline
// orchestrates around: a "send prompt, get response" capability addressed
// by provider-qualified model identifiers. The pipeline core depends only
// on the interfaces here; the HTTP and CLI clients are interchangeable
// backends.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// Invoker is the minimal gateway capability: one prompt, one model, one
// response. Every board worker call and the arbiter call go through it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, model ModelID) (string, error)
}

// BatchResponse is one slot of a native batch dispatch: the model it was
// produced for and either a response artifact path or an error.
type BatchResponse struct {
	Model        ModelID
	ResponseFile string
	Err          error
}

// BatchDispatcher is an optional gateway capability for backends that fan
// a prompt file out to several models natively and deposit one response
// file per model. Unlike per-model Invoke calls, a batch gateway may
// return fewer slots than requested; callers must reconcile counts.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, promptFile string, models []ModelID) ([]BatchResponse, error)
}

// RateLimitError indicates the gateway provider returned a rate limit
// response. Callers can use errors.As to detect this error type and
// implement backoff.
type RateLimitError struct {
	Provider    string
	RetryAfter  time.Duration
	RawResponse string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}
