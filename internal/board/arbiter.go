package board

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"boardroom/internal/gateway"
)

var (
	errEmptyDecision = errors.New("empty decision text")
	errEmptyPrompt   = errors.New("prompt source is empty")
)

// Arbiter sends the assembled board packet to the arbiter model and
// returns the final decision. It is a single blocking call downstream of
// the collection join; any terminal failure here aborts the pipeline.
type Arbiter struct {
	gw     gateway.Invoker
	policy retryPolicy
	logger *zap.Logger
}

// NewArbiter creates an arbiter invoker. A nil logger is replaced with a
// no-op logger.
func NewArbiter(gw gateway.Invoker, timeout time.Duration, maxRetries int, retryBase time.Duration, logger *zap.Logger) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{
		gw: gw,
		policy: retryPolicy{
			maxRetries:  maxRetries,
			baseDelay:   retryBase,
			callTimeout: timeout,
		},
		logger: logger,
	}
}

// Decide sends the rendered document to the arbiter model. Gateway
// errors, exhaustion of retries, and an empty decision all surface as
// ArbiterInvocationError.
func (a *Arbiter) Decide(ctx context.Context, model gateway.ModelID, rendered string) (Decision, error) {
	start := time.Now()
	text, err := a.policy.invoke(ctx, a.gw, arbiterPrompt(rendered), model, a.logger)
	if err != nil {
		return Decision{}, &ArbiterInvocationError{Model: model, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Decision{}, &ArbiterInvocationError{Model: model, Err: errEmptyDecision}
	}

	a.logger.Info("arbiter decided",
		zap.String("model", model.String()),
		zap.Duration("duration", time.Since(start)))

	return Decision{Arbiter: model, Text: text}, nil
}

// arbiterPrompt wraps the board packet in the arbiter's instructions.
func arbiterPrompt(rendered string) string {
	var sb strings.Builder

	sb.WriteString("You are the arbiter of a board of independent models that all answered\n")
	sb.WriteString("the same prompt. Read the original prompt and every board response below,\n")
	sb.WriteString("weigh their agreement and disagreement, and produce one final decision.\n")
	sb.WriteString("A response marked status=\"failed\" contributed nothing; do not penalize\n")
	sb.WriteString("the question for it. Answer with the decision only.\n\n")
	sb.WriteString(rendered)

	return sb.String()
}
