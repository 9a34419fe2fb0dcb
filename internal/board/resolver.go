package board

import (
	"fmt"
	"strings"

	"boardroom/internal/gateway"
)

// ResolveModels determines the worker roster. An explicit list wins; an
// empty or all-blank explicit list falls back to the configured roster.
// Entries are trimmed, blanks dropped, and each survivor must parse as
// provider:model. Resolution is pure: no I/O, no ambient state.
func ResolveModels(explicit, fallback []string) ([]gateway.ModelID, error) {
	raw := cleanList(explicit)
	source := "request"
	if len(raw) == 0 {
		raw = cleanList(fallback)
		source = "configured fallback"
	}
	if len(raw) == 0 {
		return nil, &ConfigurationError{Reason: "no worker models in request and no fallback roster configured"}
	}

	models := make([]gateway.ModelID, 0, len(raw))
	for _, entry := range raw {
		m, err := gateway.ParseModelID(entry)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid model in %s list: %v", source, err)}
		}
		models = append(models, m)
	}
	return models, nil
}

// ResolveArbiter determines the arbiter model: the explicit identifier
// if present, otherwise the configured default.
func ResolveArbiter(explicit, fallback string) (gateway.ModelID, error) {
	entry := strings.TrimSpace(explicit)
	if entry == "" {
		entry = strings.TrimSpace(fallback)
	}
	if entry == "" {
		return gateway.ModelID{}, &ConfigurationError{Reason: "no arbiter model configured"}
	}
	m, err := gateway.ParseModelID(entry)
	if err != nil {
		return gateway.ModelID{}, &ConfigurationError{Reason: fmt.Sprintf("invalid arbiter model: %v", err)}
	}
	return m, nil
}

// cleanList trims entries and drops blanks, preserving order.
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
