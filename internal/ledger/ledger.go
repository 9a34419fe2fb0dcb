// Package ledger records completed decision runs in a local SQLite
// database so past board decisions can be listed and audited. The ledger
// is additive bookkeeping; the two output artifacts remain the
// authoritative record of a run.
package ledger

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Entry is one recorded decision run.
type Entry struct {
	RunID        string
	PromptDigest string
	Models       []string
	Arbiter      string
	DocumentPath string
	DecisionPath string
	WorkerCount  int
	FailureCount int
	CreatedAt    time.Time
}

// Ledger is the SQLite-backed decision record.
type Ledger struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open initializes the ledger database at the given path, creating the
// schema (and parent directory) if needed. A nil logger is replaced with
// a no-op logger.
func Open(path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}

	l := &Ledger{db: db, logger: logger}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

// initialize creates the schema if absent.
func (l *Ledger) initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			run_id        TEXT PRIMARY KEY,
			prompt_digest TEXT NOT NULL,
			models        TEXT NOT NULL,
			arbiter       TEXT NOT NULL,
			document_path TEXT NOT NULL,
			decision_path TEXT NOT NULL,
			worker_count  INTEGER NOT NULL,
			failure_count INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_created
			ON decisions(created_at DESC);
	`)
	return err
}

// Record inserts one completed run.
func (l *Ledger) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO decisions
			(run_id, prompt_digest, models, arbiter, document_path, decision_path, worker_count, failure_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.PromptDigest, strings.Join(e.Models, ","), e.Arbiter,
		e.DocumentPath, e.DecisionPath, e.WorkerCount, e.FailureCount,
		e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision %s: %w", e.RunID, err)
	}

	l.logger.Debug("decision recorded", zap.String("run_id", e.RunID))
	return nil
}

// List returns the most recent entries, newest first.
func (l *Ledger) List(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(`
		SELECT run_id, prompt_digest, models, arbiter, document_path, decision_path, worker_count, failure_count, created_at
		FROM decisions ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var models string
		var created int64
		if err := rows.Scan(&e.RunID, &e.PromptDigest, &models, &e.Arbiter,
			&e.DocumentPath, &e.DecisionPath, &e.WorkerCount, &e.FailureCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		if models != "" {
			e.Models = strings.Split(models, ",")
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// PromptDigest produces the stable digest stored for a prompt, so runs
// over the same prompt can be correlated without storing its text.
func PromptDigest(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:8])
}
