// Package watch runs the board pipeline for each prompt file dropped
// into an inbox directory. Agent-facing tooling writes a prompt file and
// picks the artifacts up from the output root afterwards.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler processes one inbox prompt file.
type Handler func(ctx context.Context, promptFile string) error

// Stats tracks watcher activity. FilesSeen counts prompt files that
// produced at least one event; RunsTriggered counts handler starts, so
// the two diverge when a file is still settling or the watcher stops
// before its window elapses.
type Stats struct {
	FilesSeen     int
	RunsTriggered int
	RunsFailed    int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher monitors an inbox directory for new prompt files and invokes
// the handler once per settled file. Events only mark a path as pending;
// a ticker dispatches paths whose last event is older than the debounce
// window, so rapid successive writes coalesce into a single run over the
// final content and the event pump is never blocked by a running
// pipeline.
type Watcher struct {
	mu           sync.Mutex
	watcher      *fsnotify.Watcher
	inboxDir     string
	handler      Handler
	logger       *zap.Logger
	pending      map[string]time.Time
	debounceDur  time.Duration
	pollInterval time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	handlers     sync.WaitGroup
	running      bool
	stats        Stats
}

// New creates a watcher over the inbox directory. The directory is
// created if absent. A nil logger is replaced with a no-op logger.
func New(inboxDir string, handler Handler, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:      fsw,
		inboxDir:     inboxDir,
		handler:      handler,
		logger:       logger,
		pending:      make(map[string]time.Time),
		debounceDur:  500 * time.Millisecond,
		pollInterval: 100 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; events are processed on
// a background goroutine until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.inboxDir); err != nil {
		return err
	}
	w.logger.Info("watching inbox", zap.String("dir", w.inboxDir))

	go w.loop(ctx)
	return nil
}

// Stop halts the watcher, waits for the event loop to drain and for any
// in-flight handler to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.handlers.Wait()
	w.watcher.Close()
}

// Snapshot returns a copy of the current watcher stats.
func (w *Watcher) Snapshot() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// loop is the event pump. Events only update the pending map; the ticker
// dispatches settled paths.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.recordEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.dispatchSettled(ctx)
		}
	}
}

// recordEvent marks a prompt file as pending. Every further event for
// the path pushes its settle time out, so a slow writer's file is not
// read until it stops changing.
func (w *Watcher) recordEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !IsPromptFile(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, known := w.pending[event.Name]; !known {
		w.stats.FilesSeen++
	}
	w.pending[event.Name] = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
}

// dispatchSettled collects paths whose last event is outside the
// debounce window, removes them from the pending map, and runs the
// handler for each off the event loop.
func (w *Watcher) dispatchSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.mu.Lock()
		w.stats.RunsTriggered++
		w.mu.Unlock()

		w.logger.Info("prompt settled", zap.String("file", path))
		w.handlers.Add(1)
		go func(path string) {
			defer w.handlers.Done()
			if err := w.handler(ctx, path); err != nil {
				w.mu.Lock()
				w.stats.RunsFailed++
				w.mu.Unlock()
				w.logger.Error("run failed", zap.String("file", path), zap.Error(err))
			}
		}(path)
	}
}

// IsPromptFile reports whether a path looks like an inbox prompt file.
func IsPromptFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".prompt":
		return true
	}
	return false
}
