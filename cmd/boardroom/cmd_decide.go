package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boardroom/internal/board"
	"boardroom/internal/ledger"
	"boardroom/internal/logging"
)

// runDirName builds a unique per-run output directory name.
func runDirName() string {
	return time.Now().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

var (
	decidePromptFile string
	decideModels     []string
	decideArbiter    string
	decideOutDir     string
	decidePlain      bool
)

// decideCmd runs one full board-and-arbiter pipeline.
var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Fan a prompt out to the board and obtain the arbiter's decision",
	Long: `Runs the full pipeline: resolve the board roster, dispatch the prompt to
every member concurrently, collect their responses into an arbitration
packet, send the packet to the arbiter, and persist both artifacts.

Examples:
  boardroom decide --prompt question.md
  boardroom decide --prompt question.md -m openai:gpt-4o -m anthropic:claude-3-opus
  boardroom decide --prompt question.md --arbiter anthropic:claude-3-opus --out ./decisions`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().StringVarP(&decidePromptFile, "prompt", "p", "", "file containing the prompt (required)")
	decideCmd.Flags().StringArrayVarP(&decideModels, "model", "m", nil, "worker model (provider:model), repeatable; falls back to config/BOARDROOM_MODELS")
	decideCmd.Flags().StringVar(&decideArbiter, "arbiter", "", "arbiter model (provider:model)")
	decideCmd.Flags().StringVarP(&decideOutDir, "out", "o", "", "output directory root (default from config)")
	decideCmd.Flags().BoolVar(&decidePlain, "plain", false, "print the decision without terminal rendering")
	_ = decideCmd.MarkFlagRequired("prompt")
}

// runDecide executes the pipeline and reports the artifacts.
func runDecide(cmd *cobra.Command, args []string) error {
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

	outRoot := decideOutDir
	if outRoot == "" {
		outRoot = cfg.Output.Dir
	}

	result, err := pipeline.Run(cmd.Context(), board.RunRequest{
		PromptFile:     decidePromptFile,
		Models:         decideModels,
		FallbackModels: cfg.Board.Models,
		Arbiter:        decideArbiter,
		OutputDir:      filepath.Join(outRoot, runDirName()),
		DocumentName:   cfg.Output.DocumentName,
		DecisionName:   cfg.Output.DecisionName,
	})
	if err != nil {
		return err
	}

	recordRun(result)

	for _, diag := range result.Diagnostics {
		fmt.Printf("warning: %s\n", diag)
	}
	fmt.Printf("Arbitration packet: %s\n", result.Artifacts.DocumentPath)
	fmt.Printf("Decision:           %s\n\n", result.Artifacts.DecisionPath)

	printDecision(result.Decision.Text)
	return nil
}

// printDecision renders the decision Markdown for the terminal, falling
// back to plain text.
func printDecision(text string) {
	if !decidePlain {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, rerr := renderer.Render(text); rerr == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Println(text)
}

// recordRun writes the run to the decision ledger when one is
// configured. Ledger trouble is logged, never fatal: the artifacts are
// already persisted.
func recordRun(result *board.Result) {
	if cfg.Ledger.Path == "" {
		return
	}

	l, err := ledger.Open(cfg.Ledger.Path, logging.For(logger, logging.CategoryLedger))
	if err != nil {
		logger.Warn("ledger unavailable", zap.Error(err))
		return
	}
	defer l.Close()

	models := make([]string, len(result.Request.Models))
	failures := 0
	for i, m := range result.Request.Models {
		models[i] = m.String()
	}
	for _, w := range result.Workers {
		if w.Failed {
			failures++
		}
	}

	if err := l.Record(ledger.Entry{
		RunID:        result.RunID,
		PromptDigest: ledger.PromptDigest(result.Request.Prompt),
		Models:       models,
		Arbiter:      result.Request.Arbiter.String(),
		DocumentPath: result.Artifacts.DocumentPath,
		DecisionPath: result.Artifacts.DecisionPath,
		WorkerCount:  len(result.Workers),
		FailureCount: failures,
	}); err != nil {
		logger.Warn("failed to record run", zap.Error(err))
	}
}
