package board

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boardroom/internal/gateway"
)

// DispatchEntry is one slot of the fan-out: the model it belongs to and
// either a response artifact path or the error the worker settled on
// after retries.
type DispatchEntry struct {
	Model        gateway.ModelID
	ResponseFile string
	Err          error
	Duration     time.Duration
}

// Dispatcher fans the prompt out to every board member. Workers run
// concurrently, share no mutable state beyond distinct slots of a
// pre-sized slice and distinct spool files, and one worker's failure
// never blocks or aborts another.
type Dispatcher struct {
	gw       gateway.Invoker
	spoolDir string
	policy   retryPolicy
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher writing response artifacts under
// spoolDir. A nil logger is replaced with a no-op logger.
func NewDispatcher(gw gateway.Invoker, spoolDir string, workerTimeout time.Duration, maxRetries int, retryBase time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		gw:       gw,
		spoolDir: spoolDir,
		policy: retryPolicy{
			maxRetries:  maxRetries,
			baseDelay:   retryBase,
			callTimeout: workerTimeout,
		},
		logger: logger,
	}
}

// Dispatch invokes every model in the request. In the per-model path the
// returned slice has exactly one entry per requested model, in request
// order, by construction: each goroutine writes only its own index. A
// gateway with native batch dispatch is handed the whole roster instead;
// that path may return a diverging slot count, which the Collector
// reconciles.
func (d *Dispatcher) Dispatch(ctx context.Context, req DecisionRequest) []DispatchEntry {
	if batch, ok := d.gw.(gateway.BatchDispatcher); ok && req.PromptFile != "" {
		return d.dispatchBatch(ctx, batch, req)
	}

	entries := make([]DispatchEntry, len(req.Models))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, model := range req.Models {
		i, model := i, model
		entries[i].Model = model
		eg.Go(func() error {
			start := time.Now()
			text, err := d.policy.invoke(egCtx, d.gw, req.Prompt, model, d.logger)
			entries[i].Duration = time.Since(start)
			if err != nil {
				d.logger.Warn("board member failed",
					zap.String("model", model.String()),
					zap.Error(err))
				entries[i].Err = err
				return nil
			}

			file := filepath.Join(d.spoolDir, fmt.Sprintf("worker_%02d_%s.md", i+1, model.FileSlug()))
			if werr := os.WriteFile(file, []byte(text), 0644); werr != nil {
				entries[i].Err = fmt.Errorf("failed to spool response: %w", werr)
				return nil
			}
			entries[i].ResponseFile = file
			d.logger.Debug("board member responded",
				zap.String("model", model.String()),
				zap.Duration("duration", entries[i].Duration))
			return nil
		})
	}
	// Join barrier: collection never starts before every worker settled.
	_ = eg.Wait()

	return entries
}

// dispatchBatch hands the roster to a natively batching gateway under
// the same retry policy as per-model calls. Only after retries are
// exhausted does the whole batch degrade to one failure entry per model,
// so the length invariant holds on this path too.
func (d *Dispatcher) dispatchBatch(ctx context.Context, batch gateway.BatchDispatcher, req DecisionRequest) []DispatchEntry {
	start := time.Now()
	slots, err := d.policy.dispatch(ctx, batch, req.PromptFile, req.Models, d.logger)
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Warn("batch dispatch failed", zap.Error(err))
		entries := make([]DispatchEntry, len(req.Models))
		for i, model := range req.Models {
			entries[i] = DispatchEntry{Model: model, Err: err, Duration: elapsed}
		}
		return entries
	}

	entries := make([]DispatchEntry, len(slots))
	for i, slot := range slots {
		entries[i] = DispatchEntry{
			Model:        slot.Model,
			ResponseFile: slot.ResponseFile,
			Err:          slot.Err,
			Duration:     elapsed,
		}
	}
	return entries
}
