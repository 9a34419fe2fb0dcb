package gateway

import (
	"fmt"
	"strings"
)

// ModelID identifies one model behind the gateway using the
// "provider:model" convention, e.g. "anthropic:claude-3-opus" or
// "openai:gpt-4o".
type ModelID struct {
	Provider string
	Name     string
}

// ParseModelID parses a "provider:model" identifier. Both halves must be
// non-empty after trimming; the model half may itself contain colons
// (version suffixes), so only the first colon splits.
func ParseModelID(s string) (ModelID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ModelID{}, fmt.Errorf("empty model identifier")
	}
	provider, name, found := strings.Cut(trimmed, ":")
	if !found {
		return ModelID{}, fmt.Errorf("model identifier %q is not provider:model form", trimmed)
	}
	provider = strings.TrimSpace(provider)
	name = strings.TrimSpace(name)
	if provider == "" || name == "" {
		return ModelID{}, fmt.Errorf("model identifier %q has an empty provider or model half", trimmed)
	}
	return ModelID{Provider: provider, Name: name}, nil
}

// String returns the canonical provider:model form.
func (m ModelID) String() string {
	return m.Provider + ":" + m.Name
}

// IsZero reports whether the identifier is unset.
func (m ModelID) IsZero() bool {
	return m.Provider == "" && m.Name == ""
}

// FileSlug returns a filesystem-safe rendering of the identifier, used
// for per-worker spool file names.
func (m ModelID) FileSlug() string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(m.String())
}
