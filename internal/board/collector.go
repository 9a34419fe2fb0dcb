package board

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"boardroom/internal/gateway"
)

// Collector settles dispatch entries into WorkerResults. It is the
// fan-in side of the pipeline: by the time Collect runs, every worker
// has succeeded or failed.
type Collector struct {
	logger *zap.Logger
}

// NewCollector creates a collector. A nil logger is replaced with a
// no-op logger.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger}
}

// Collect resolves each dispatch entry into a WorkerResult by reading
// the referenced response artifact, or by instantiating the failure
// marker. Length parity with the requested roster is a checked
// postcondition: on divergence the shorter side wins and a
// CollectionMismatchError diagnostic is returned alongside the results.
// Neither list is ever indexed past its bound.
func (c *Collector) Collect(models []gateway.ModelID, entries []DispatchEntry) ([]WorkerResult, *CollectionMismatchError) {
	var diag *CollectionMismatchError
	n := len(entries)
	if n != len(models) {
		diag = &CollectionMismatchError{Requested: len(models), Returned: len(entries)}
		c.logger.Warn("collection mismatch", zap.Int("requested", diag.Requested), zap.Int("returned", diag.Returned))
		if len(models) < n {
			n = len(models)
		}
	}

	results := make([]WorkerResult, 0, n)
	for i := 0; i < n; i++ {
		entry := entries[i]
		model := entry.Model
		if model.IsZero() {
			model = models[i]
		}
		results = append(results, c.settle(model, entry))
	}
	return results, diag
}

// settle turns one dispatch entry into its worker result.
func (c *Collector) settle(model gateway.ModelID, entry DispatchEntry) WorkerResult {
	switch {
	case entry.Err != nil:
		return failedResult(model, entry.Err.Error(), entry.Duration)
	case entry.ResponseFile == "":
		return failedResult(model, "gateway produced no response artifact", entry.Duration)
	}

	data, err := os.ReadFile(entry.ResponseFile)
	if err != nil {
		return failedResult(model, fmt.Sprintf("response artifact unreadable: %v", err), entry.Duration)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return failedResult(model, "empty response", entry.Duration)
	}

	return WorkerResult{Model: model, Response: text, Duration: entry.Duration}
}
