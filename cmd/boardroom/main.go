package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boardroom/internal/config"
	"boardroom/internal/gateway"
	"boardroom/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonLogs   bool

	// Loaded configuration and logger, set up by the persistent pre-run.
	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "boardroom",
	Short: "boardroom - board-and-arbiter decision orchestration",
	Long: `boardroom fans a prompt out to a board of independent models, collects
their responses into one arbitration packet, and asks an arbiter model
for the final decision. The packet and the decision are persisted as two
artifacts per run.

Model identifiers use the provider:model convention, e.g.
anthropic:claude-3-opus or openai:gpt-4o.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv(nil)

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{
			Level:      level,
			JSONFormat: jsonLogs || cfg.Logging.JSONFormat,
			File:       cfg.Logging.File,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// buildGateway constructs the configured gateway backend.
func buildGateway() (gateway.Invoker, error) {
	switch cfg.Gateway.Kind {
	case "", "http":
		httpCfg := gateway.DefaultHTTPConfig(cfg.Gateway.APIKey)
		if cfg.Gateway.BaseURL != "" {
			httpCfg.BaseURL = cfg.Gateway.BaseURL
		}
		if cfg.Gateway.Timeout > 0 {
			httpCfg.Timeout = cfg.Gateway.Timeout
		}
		if cfg.Gateway.MaxTokens > 0 {
			httpCfg.MaxTokens = cfg.Gateway.MaxTokens
		}
		httpCfg.Temperature = cfg.Gateway.Temperature
		httpCfg.QualifiedModels = cfg.Gateway.QualifiedModels
		return gateway.NewHTTPClient(httpCfg), nil
	case "cli":
		return gateway.NewCLIClient(gateway.CLIConfig{
			Binary:    cfg.Gateway.Binary,
			ExtraArgs: cfg.Gateway.ExtraArgs,
			Timeout:   cfg.Gateway.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown gateway kind %q (valid: http, cli)", cfg.Gateway.Kind)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "boardroom.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON log lines")

	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
