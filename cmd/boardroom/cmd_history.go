package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"boardroom/internal/ledger"
	"boardroom/internal/logging"
)

var historyLimit int

// historyCmd lists recent decisions from the ledger.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent board decisions from the ledger",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Ledger.Path == "" {
		return fmt.Errorf("no ledger configured (set ledger.path in %s)", configPath)
	}

	l, err := ledger.Open(cfg.Ledger.Path, logging.For(logger, logging.CategoryLedger))
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.List(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No decisions recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.RunID)
		fmt.Printf("  board:    %s\n", strings.Join(e.Models, ", "))
		fmt.Printf("  arbiter:  %s\n", e.Arbiter)
		fmt.Printf("  workers:  %d ok, %d failed\n", e.WorkerCount-e.FailureCount, e.FailureCount)
		fmt.Printf("  decision: %s\n\n", e.DecisionPath)
	}
	return nil
}
