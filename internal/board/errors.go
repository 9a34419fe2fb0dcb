package board

import (
	"fmt"

	"boardroom/internal/gateway"
)

// Stage identifies a pipeline phase. Terminal failures carry the stage
// they occurred in so callers can tell which phase broke.
type Stage string

const (
	StageResolving   Stage = "resolving"
	StageDispatching Stage = "dispatching"
	StageCollecting  Stage = "collecting"
	StageBuilding    Stage = "building"
	StageArbitrating Stage = "arbitrating"
	StagePersisting  Stage = "persisting"

	// StagePersisted is the terminal success state.
	StagePersisted Stage = "persisted"
)

// PipelineError is the single terminal failure shape: the stage that
// failed plus the cause. Worker-level failures never become a
// PipelineError; they degrade to failure markers in the result list.
type PipelineError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *PipelineError) Unwrap() error { return e.Err }

// ConfigurationError indicates no valid worker roster or arbiter could
// be resolved. Fatal, pre-dispatch.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// InputNotFoundError indicates the prompt source is missing or
// unreadable. Fatal, pre-dispatch.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("prompt source %s not available: %v", e.Path, e.Err)
}

// Unwrap exposes the cause.
func (e *InputNotFoundError) Unwrap() error { return e.Err }

// ArbiterInvocationError indicates the arbiter call failed. Unlike
// worker failures there is no meaningful partial decision, so this is
// always fatal.
type ArbiterInvocationError struct {
	Model gateway.ModelID
	Err   error
}

func (e *ArbiterInvocationError) Error() string {
	return fmt.Sprintf("arbiter %s invocation failed: %v", e.Model, e.Err)
}

// Unwrap exposes the cause.
func (e *ArbiterInvocationError) Unwrap() error { return e.Err }

// PersistenceError indicates the output location could not be created or
// written. Fatal; partially built artifacts are not authoritative.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Path, e.Err)
}

// Unwrap exposes the cause.
func (e *PersistenceError) Unwrap() error { return e.Err }

// CollectionMismatchError describes a count divergence between the
// requested roster and the gateway's response slots. It is recovered by
// truncating to the shorter side and surfaced as a diagnostic, never as
// a terminal failure.
type CollectionMismatchError struct {
	Requested int
	Returned  int
}

func (e *CollectionMismatchError) Error() string {
	return fmt.Sprintf("gateway returned %d response slots for %d requested models; truncating to the shorter side", e.Returned, e.Requested)
}
