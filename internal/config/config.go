// Package config holds boardroom configuration: the board model roster,
// the arbiter, gateway connection settings, output locations, and
// logging. Configuration is loaded once at the CLI boundary and passed
// into the pipeline; nothing below this layer reads files or environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all boardroom configuration.
type Config struct {
	// Board configuration
	Board BoardConfig `yaml:"board"`

	// Gateway connection settings
	Gateway GatewayConfig `yaml:"gateway"`

	// Output artifact settings
	Output OutputConfig `yaml:"output"`

	// Ledger database settings
	Ledger LedgerConfig `yaml:"ledger"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BoardConfig configures the worker roster and the arbiter.
type BoardConfig struct {
	// Models is the default worker roster, provider:model identifiers.
	// An explicit request list takes precedence over it.
	Models []string `yaml:"models"`

	// Arbiter is the model that synthesizes the final decision.
	Arbiter string `yaml:"arbiter"`

	// WorkerTimeout bounds each board member call.
	WorkerTimeout time.Duration `yaml:"worker_timeout"`

	// ArbiterTimeout bounds the arbiter call.
	ArbiterTimeout time.Duration `yaml:"arbiter_timeout"`

	// MaxRetries is the bounded retry count for transient failures on
	// each worker call and the arbiter call.
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay seeds the exponential backoff (1x, 2x, 4x ...).
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// GatewayConfig configures the prompt gateway backend.
type GatewayConfig struct {
	// Kind selects the backend: "http" or "cli".
	Kind string `yaml:"kind"`

	// HTTP backend settings.
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	QualifiedModels bool    `yaml:"qualified_models"`

	// CLI backend settings.
	Binary    string   `yaml:"binary"`
	ExtraArgs []string `yaml:"extra_args"`

	// Timeout bounds a single gateway call regardless of backend.
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig configures where artifacts land.
type OutputConfig struct {
	// Dir is the artifact root; each run gets its own subdirectory.
	Dir string `yaml:"dir"`

	// DocumentName and DecisionName override the artifact file names.
	DocumentName string `yaml:"document_name"`
	DecisionName string `yaml:"decision_name"`
}

// LedgerConfig configures the decision ledger database.
type LedgerConfig struct {
	// Path of the SQLite database. Empty disables the ledger.
	Path string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
	File       string `yaml:"file"`
}

// Default returns the baseline configuration. The arbiter default is
// anthropic:claude-3-opus; override via config file, BOARDROOM_ARBITER,
// or the --arbiter flag.
func Default() Config {
	return Config{
		Board: BoardConfig{
			Arbiter:        "anthropic:claude-3-opus",
			WorkerTimeout:  120 * time.Second,
			ArbiterTimeout: 300 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		Gateway: GatewayConfig{
			Kind:        "http",
			BaseURL:     "https://api.openai.com/v1",
			MaxTokens:   4096,
			Temperature: 0.2,
			Timeout:     120 * time.Second,
		},
		Output: OutputConfig{
			Dir:          "boardroom-out",
			DocumentName: "board_packet.md",
			DecisionName: "decision.md",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Environment variable names recognized by ApplyEnv. These are read once
// at the process boundary, never inside the pipeline.
const (
	EnvModels  = "BOARDROOM_MODELS"
	EnvArbiter = "BOARDROOM_ARBITER"
	EnvAPIKey  = "BOARDROOM_API_KEY"
)

// ApplyEnv overlays recognized environment variables onto the config.
// BOARDROOM_MODELS is the comma-separated fallback roster. getenv may be
// nil, in which case os.Getenv is used.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvModels); v != "" {
		c.Board.Models = SplitModelList(v)
	}
	if v := getenv(EnvArbiter); v != "" {
		c.Board.Arbiter = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.Gateway.APIKey = v
	}
}

// SplitModelList splits a comma-separated model list, trimming entries
// and dropping empties.
func SplitModelList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if entry := strings.TrimSpace(part); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
