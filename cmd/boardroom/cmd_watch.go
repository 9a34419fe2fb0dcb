package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"boardroom/internal/board"
	"boardroom/internal/logging"
	"boardroom/internal/watch"
)

var (
	watchInbox  string
	watchOutDir string
)

// watchCmd runs the pipeline for every prompt file dropped into an
// inbox directory.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline for each prompt file dropped into an inbox",
	Long: `Watches an inbox directory and runs the full board-and-arbiter pipeline
for every new prompt file (.md, .txt, .prompt). Artifacts land under the
output root, one subdirectory per run. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "boardroom-inbox", "inbox directory to watch")
	watchCmd.Flags().StringVarP(&watchOutDir, "out", "o", "", "output directory root (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	gw, err := buildGateway()
	if err != nil {
		return err
	}

	pipeline := board.New(gw, board.Options{
		DefaultArbiter: cfg.Board.Arbiter,
		WorkerTimeout:  cfg.Board.WorkerTimeout,
		ArbiterTimeout: cfg.Board.ArbiterTimeout,
		MaxRetries:     cfg.Board.MaxRetries,
		RetryBaseDelay: cfg.Board.RetryBaseDelay,
	}, logging.For(logger, logging.CategoryPipeline))

	outRoot := watchOutDir
	if outRoot == "" {
		outRoot = cfg.Output.Dir
	}

	handler := func(ctx context.Context, promptFile string) error {
		result, err := pipeline.Run(ctx, board.RunRequest{
			PromptFile:     promptFile,
			FallbackModels: cfg.Board.Models,
			OutputDir:      filepath.Join(outRoot, runDirName()),
			DocumentName:   cfg.Output.DocumentName,
			DecisionName:   cfg.Output.DecisionName,
		})
		if err != nil {
			return err
		}
		recordRun(result)
		fmt.Printf("%s -> %s\n", promptFile, result.Artifacts.DecisionPath)
		return nil
	}

	w, err := watch.New(watchInbox, handler, logging.For(logger, logging.CategoryWatch))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", watchInbox)

	<-ctx.Done()
	w.Stop()

	stats := w.Snapshot()
	fmt.Printf("Processed %d prompts (%d failed)\n", stats.RunsTriggered, stats.RunsFailed)
	return nil
}
