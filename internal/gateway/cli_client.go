package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIClient drives an external prompt-dispatch tool as a subprocess. The
// tool is the real multi-model gateway; this client only shells out and
// parses its JSON output. It supports both per-model invocation and the
// tool's native batch dispatch, which deposits one response file per
// model and reports the files it wrote on stdout.
type CLIClient struct {
	binary  string
	extra   []string
	timeout time.Duration
}

// CLIConfig holds configuration for the subprocess gateway.
type CLIConfig struct {
	// Binary is the gateway executable name or path.
	Binary string
	// ExtraArgs are prepended to every invocation (profile flags etc).
	ExtraArgs []string
	// Timeout bounds a single subprocess execution (default: 300s).
	Timeout time.Duration
}

// NewCLIClient creates a subprocess gateway client. If cfg leaves fields
// unset, defaults are applied (binary "promptd", timeout 300s).
func NewCLIClient(cfg CLIConfig) *CLIClient {
	binary := cfg.Binary
	if binary == "" {
		binary = "promptd"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &CLIClient{
		binary:  binary,
		extra:   cfg.ExtraArgs,
		timeout: timeout,
	}
}

// cliInvokeResponse is the JSON shape the gateway tool prints for a
// single invocation.
type cliInvokeResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	IsRateLimited bool `json:"is_rate_limited,omitempty"`
}

// cliDispatchEntry is one line of the gateway tool's batch report.
type cliDispatchEntry struct {
	Model string `json:"model"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// Invoke executes the gateway tool for one model and returns the
// response text.
func (c *CLIClient) Invoke(ctx context.Context, prompt string, model ModelID) (string, error) {
	args := append(append([]string{}, c.extra...),
		"invoke",
		"-p", prompt,
		"--model", model.String(),
		"--output-format", "json",
	)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}
	return c.parseInvokeResponse(model, stdout)
}

// Dispatch executes the gateway tool's native fan-out over a prompt file
// and maps its report to batch response slots. The tool decides how many
// files it writes; the slot count may diverge from the model count and
// callers reconcile.
func (c *CLIClient) Dispatch(ctx context.Context, promptFile string, models []ModelID) ([]BatchResponse, error) {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.String()
	}

	args := append(append([]string{}, c.extra...),
		"dispatch",
		"--prompt-file", promptFile,
		"--models", strings.Join(names, ","),
		"--output-format", "json",
	)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var entries []cliDispatchEntry
	if err := json.Unmarshal(stdout, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse gateway dispatch report: %w (raw: %s)", err, truncateRaw(string(stdout), 500))
	}

	out := make([]BatchResponse, 0, len(entries))
	for _, e := range entries {
		model, perr := ParseModelID(e.Model)
		if perr != nil {
			out = append(out, BatchResponse{Err: fmt.Errorf("gateway reported unparseable model %q: %w", e.Model, perr)})
			continue
		}
		slot := BatchResponse{Model: model, ResponseFile: e.File}
		if e.Error != "" {
			slot.Err = errors.New(e.Error)
			slot.ResponseFile = ""
		}
		out = append(out, slot)
	}
	return out, nil
}

// run executes the gateway binary with a timeout and returns stdout.
func (c *CLIClient) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %v: %w", c.binary, c.timeout, ctx.Err())
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("%s execution canceled: %w", c.binary, ctx.Err())
		}

		stderrStr := stderr.String()
		if isRateLimitOutput(stderrStr) {
			return nil, &RateLimitError{Provider: c.binary, RawResponse: stderrStr}
		}
		return nil, fmt.Errorf("%s execution failed: %w (stderr: %s)", c.binary, err, stderrStr)
	}

	return stdout.Bytes(), nil
}

// parseInvokeResponse extracts the response text from the tool's JSON
// output.
func (c *CLIClient) parseInvokeResponse(model ModelID, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty response from %s for %s", c.binary, model)
	}

	var resp cliInvokeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w (raw: %s)", c.binary, err, truncateRaw(string(data), 500))
	}

	if resp.IsRateLimited {
		return "", &RateLimitError{Provider: model.Provider, RawResponse: string(data)}
	}
	if resp.Error != nil {
		if isRateLimitOutput(resp.Error.Message) || isRateLimitOutput(resp.Error.Type) {
			return "", &RateLimitError{Provider: model.Provider, RawResponse: resp.Error.Message}
		}
		return "", fmt.Errorf("gateway error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("no text content in %s response for %s", c.binary, model)
	}
	return text, nil
}

// isRateLimitOutput checks output text for rate limit indicators.
func isRateLimitOutput(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests")
}

// truncateRaw shortens raw payloads embedded in error messages.
func truncateRaw(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
