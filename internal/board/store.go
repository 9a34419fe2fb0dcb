package board

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ArtifactStore persists the arbitration document and the decision as
// two artifacts under the requested output location. Writes stage into a
// temporary directory and rename into place, so a failed or canceled run
// never leaves partial artifacts visible.
type ArtifactStore struct {
	logger *zap.Logger
}

// NewArtifactStore creates an artifact store. A nil logger is replaced
// with a no-op logger.
func NewArtifactStore(logger *zap.Logger) *ArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactStore{logger: logger}
}

// Persist writes the rendered document and the decision under outDir,
// creating it if absent, and returns the two resulting paths. Artifacts
// are written once and never touched again. Any failure is a
// PersistenceError reported verbatim; nothing is retried.
func (s *ArtifactStore) Persist(outDir, documentName, decisionName, rendered, decisionText string) (Artifacts, error) {
	if documentName == "" {
		documentName = "board_packet.md"
	}
	if decisionName == "" {
		decisionName = "decision.md"
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Artifacts{}, &PersistenceError{Path: outDir, Err: err}
	}

	staging, err := os.MkdirTemp(outDir, ".staging-")
	if err != nil {
		return Artifacts{}, &PersistenceError{Path: outDir, Err: err}
	}
	defer os.RemoveAll(staging)

	artifacts := Artifacts{
		DocumentPath: filepath.Join(outDir, documentName),
		DecisionPath: filepath.Join(outDir, decisionName),
	}

	stagedDoc := filepath.Join(staging, documentName)
	if err := os.WriteFile(stagedDoc, []byte(rendered), 0644); err != nil {
		return Artifacts{}, &PersistenceError{Path: artifacts.DocumentPath, Err: err}
	}
	stagedDecision := filepath.Join(staging, decisionName)
	if err := os.WriteFile(stagedDecision, []byte(decisionText), 0644); err != nil {
		return Artifacts{}, &PersistenceError{Path: artifacts.DecisionPath, Err: err}
	}

	// Both files staged; make them visible in artifact order.
	if err := os.Rename(stagedDoc, artifacts.DocumentPath); err != nil {
		return Artifacts{}, &PersistenceError{Path: artifacts.DocumentPath, Err: err}
	}
	if err := os.Rename(stagedDecision, artifacts.DecisionPath); err != nil {
		// The document is already visible; report the decision failure
		// verbatim rather than rolling back silently.
		return Artifacts{}, &PersistenceError{Path: artifacts.DecisionPath, Err: fmt.Errorf("document persisted but decision failed: %w", err)}
	}

	s.logger.Info("artifacts persisted",
		zap.String("document", artifacts.DocumentPath),
		zap.String("decision", artifacts.DecisionPath))

	return artifacts, nil
}
