// Package board implements the board-and-arbiter pipeline: one prompt is
// fanned out to a roster of board member models, their responses are
// collected into a single arbitration document, and an arbiter model
// turns that document into the final decision. Every stage produces an
// immutable value consumed by the next.
package board

import (
	"fmt"
	"time"

	"boardroom/internal/gateway"
)

// DecisionRequest is the fully resolved input to the pipeline stages:
// prompt text, an ordered non-empty roster, the arbiter, and where the
// artifacts go.
type DecisionRequest struct {
	RunID      string
	Prompt     string
	PromptFile string

	// Models is the resolved board roster, ordered. Never empty.
	Models  []gateway.ModelID
	Arbiter gateway.ModelID

	OutputDir    string
	DocumentName string
	DecisionName string
}

// WorkerResult is one board member's settled outcome: response text or a
// failure reason, exactly one of the two. The result list always has the
// same length and order as the requested roster.
type WorkerResult struct {
	Model    gateway.ModelID
	Response string
	// FailureReason is set instead of Response when the worker failed.
	FailureReason string
	Failed        bool
	Duration      time.Duration
}

// Text returns the content that represents this worker in the
// arbitration document: the response, or the explicit failure marker.
func (r WorkerResult) Text() string {
	if r.Failed {
		return fmt.Sprintf("%s failed to respond: %s", r.Model, r.FailureReason)
	}
	return r.Response
}

// failedResult builds a failure-marker result.
func failedResult(model gateway.ModelID, reason string, d time.Duration) WorkerResult {
	return WorkerResult{Model: model, FailureReason: reason, Failed: true, Duration: d}
}

// ArbitrationDocument is the composed board packet: the original prompt
// plus all worker results in request order.
type ArbitrationDocument struct {
	Prompt  string
	Entries []WorkerResult
}

// Decision is the arbiter's final output.
type Decision struct {
	Arbiter gateway.ModelID
	Text    string
	// DocumentPath points at the persisted arbitration document the
	// decision was made from. Set after persistence.
	DocumentPath string
}

// Artifacts are the two persisted output paths. Created once, immutable
// thereafter.
type Artifacts struct {
	DocumentPath string
	DecisionPath string
}
