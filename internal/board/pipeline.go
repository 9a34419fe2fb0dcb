package board

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"boardroom/internal/gateway"
)

// Options configures the pipeline's timing and retry behavior.
type Options struct {
	// DefaultArbiter is used when a request names no arbiter.
	DefaultArbiter string

	WorkerTimeout  time.Duration
	ArbiterTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// RunRequest is the caller-facing input before resolution: prompt
// source, the explicit roster (may be empty), the fallback roster, and
// output placement.
type RunRequest struct {
	// PromptFile is the readable prompt source. When set it wins over
	// Prompt and is also offered to batch-capable gateways.
	PromptFile string
	// Prompt is the prompt text when the caller already holds it.
	Prompt string

	// Models is the explicit worker roster; FallbackModels is the
	// configured roster used when Models is empty.
	Models         []string
	FallbackModels []string
	Arbiter        string

	OutputDir    string
	DocumentName string
	DecisionName string
}

// Result is the single terminal success shape: everything the run
// produced, including recovered diagnostics.
type Result struct {
	RunID       string
	Request     DecisionRequest
	Workers     []WorkerResult
	Document    ArbitrationDocument
	Rendered    string
	Decision    Decision
	Artifacts   Artifacts
	Diagnostics []string
	Duration    time.Duration
}

// Pipeline drives one decision request through
// Resolving -> Dispatching -> Collecting -> Building -> Arbitrating ->
// Persisting. Worker-level failures degrade to markers; failures in
// Resolving, Arbitrating, or Persisting terminate the run with a
// stage-tagged PipelineError.
type Pipeline struct {
	gw     gateway.Invoker
	opts   Options
	logger *zap.Logger
}

// New creates a pipeline over the given gateway. A nil logger is
// replaced with a no-op logger.
func New(gw gateway.Invoker, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{gw: gw, opts: opts, logger: logger}
}

// Run executes the full pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, rr RunRequest) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	// Resolving
	logger.Info("stage", zap.String("stage", string(StageResolving)))
	models, err := ResolveModels(rr.Models, rr.FallbackModels)
	if err != nil {
		return nil, p.fail(logger, StageResolving, err)
	}
	arbiter, err := ResolveArbiter(rr.Arbiter, p.opts.DefaultArbiter)
	if err != nil {
		return nil, p.fail(logger, StageResolving, err)
	}
	prompt, err := p.readPrompt(rr)
	if err != nil {
		return nil, p.fail(logger, StageResolving, err)
	}

	req := DecisionRequest{
		RunID:        runID,
		Prompt:       prompt,
		PromptFile:   rr.PromptFile,
		Models:       models,
		Arbiter:      arbiter,
		OutputDir:    rr.OutputDir,
		DocumentName: rr.DocumentName,
		DecisionName: rr.DecisionName,
	}

	// Worker response artifacts spool outside the output location so a
	// canceled run leaves nothing visible there.
	spoolDir, err := os.MkdirTemp("", "boardroom-"+runID+"-")
	if err != nil {
		return nil, p.fail(logger, StageDispatching, err)
	}
	defer os.RemoveAll(spoolDir)

	// Dispatching
	logger.Info("stage", zap.String("stage", string(StageDispatching)), zap.Int("models", len(models)))
	dispatcher := NewDispatcher(p.gw, spoolDir, p.opts.WorkerTimeout, p.opts.MaxRetries, p.opts.RetryBaseDelay, logger)
	entries := dispatcher.Dispatch(ctx, req)
	if ctx.Err() != nil {
		return nil, p.fail(logger, StageDispatching, ctx.Err())
	}

	// Collecting
	logger.Info("stage", zap.String("stage", string(StageCollecting)))
	collector := NewCollector(logger)
	workers, mismatch := collector.Collect(models, entries)
	var diagnostics []string
	if mismatch != nil {
		diagnostics = append(diagnostics, mismatch.Error())
	}

	// Building
	logger.Info("stage", zap.String("stage", string(StageBuilding)))
	doc := BuildDocument(prompt, workers)
	rendered := doc.Render()

	// Arbitrating
	logger.Info("stage", zap.String("stage", string(StageArbitrating)), zap.String("arbiter", arbiter.String()))
	arbiterInvoker := NewArbiter(p.gw, p.opts.ArbiterTimeout, p.opts.MaxRetries, p.opts.RetryBaseDelay, logger)
	decision, err := arbiterInvoker.Decide(ctx, arbiter, rendered)
	if err != nil {
		return nil, p.fail(logger, StageArbitrating, err)
	}

	// Persisting
	logger.Info("stage", zap.String("stage", string(StagePersisting)), zap.String("dir", rr.OutputDir))
	store := NewArtifactStore(logger)
	artifacts, err := store.Persist(rr.OutputDir, rr.DocumentName, rr.DecisionName, rendered, decision.Text)
	if err != nil {
		return nil, p.fail(logger, StagePersisting, err)
	}
	decision.DocumentPath = artifacts.DocumentPath

	result := &Result{
		RunID:       runID,
		Request:     req,
		Workers:     workers,
		Document:    doc,
		Rendered:    rendered,
		Decision:    decision,
		Artifacts:   artifacts,
		Diagnostics: diagnostics,
		Duration:    time.Since(start),
	}

	logger.Info("stage", zap.String("stage", string(StagePersisted)),
		zap.Int("workers", len(workers)),
		zap.Int("failures", countFailures(workers)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// readPrompt loads the prompt text from the request's source.
func (p *Pipeline) readPrompt(rr RunRequest) (string, error) {
	if rr.PromptFile != "" {
		data, err := os.ReadFile(rr.PromptFile)
		if err != nil {
			return "", &InputNotFoundError{Path: rr.PromptFile, Err: err}
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", &InputNotFoundError{Path: rr.PromptFile, Err: errEmptyPrompt}
		}
		return string(data), nil
	}
	if strings.TrimSpace(rr.Prompt) == "" {
		return "", &InputNotFoundError{Path: "(inline prompt)", Err: errEmptyPrompt}
	}
	return rr.Prompt, nil
}

// fail logs and wraps a terminal failure with its stage.
func (p *Pipeline) fail(logger *zap.Logger, stage Stage, err error) error {
	logger.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
	return &PipelineError{Stage: stage, Err: err}
}

// countFailures counts failure markers in a result list.
func countFailures(results []WorkerResult) int {
	n := 0
	for _, r := range results {
		if r.Failed {
			n++
		}
	}
	return n
}
