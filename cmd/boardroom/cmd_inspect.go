package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boardroom/internal/board"
)

// inspectCmd parses an arbitration packet back and reports its entries;
// it doubles as a well-formedness check for persisted documents.
var inspectCmd = &cobra.Command{
	Use:   "inspect [packet-file]",
	Short: "Parse an arbitration packet and report its board entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	prompt, entries, err := board.ParseDocument(string(data))
	if err != nil {
		return fmt.Errorf("malformed packet: %w", err)
	}

	fmt.Printf("Prompt: %d bytes\n", len(prompt))
	fmt.Printf("Board entries: %d\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %2d. %-40s %s (%d bytes)\n", e.Index, e.Model, e.Status, len(e.Text))
	}
	return nil
}
