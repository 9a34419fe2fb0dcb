package board

import (
	"fmt"
	"strconv"
	"strings"
)

// The arbitration document is Markdown with XML-style section tags. All
// inserted content passes through the escapers below, so a worker
// response containing tag-like text (e.g. "</board-response>") appears
// as literal text and can never alter document structure.

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	// Unescaping order matters: &amp; must be resolved last so escaped
	// entities in the original content round-trip.
	textUnescaper = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&amp;", "&",
	)
)

// escapeText neutralizes structural metacharacters in element content.
func escapeText(s string) string { return textEscaper.Replace(s) }

// escapeAttr neutralizes structural metacharacters in attribute values.
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// unescapeText reverses escapeText/escapeAttr.
func unescapeText(s string) string { return textUnescaper.Replace(s) }

// BuildDocument assembles the arbitration document value from the
// original prompt and the settled worker results.
func BuildDocument(prompt string, results []WorkerResult) ArbitrationDocument {
	return ArbitrationDocument{Prompt: prompt, Entries: results}
}

// Render produces the board packet handed to the arbiter. Construction
// is incremental append on one builder; content is escaped at every
// insertion point.
func (d ArbitrationDocument) Render() string {
	var b strings.Builder

	b.WriteString("# Board Arbitration Packet\n\n")
	b.WriteString("The following prompt was put to every board member. Their responses\n")
	b.WriteString("follow in request order; a failed member is represented by an explicit\n")
	b.WriteString("failure marker instead of a response.\n\n")

	b.WriteString("<original-prompt>\n")
	b.WriteString(escapeText(d.Prompt))
	b.WriteString("\n</original-prompt>\n")

	for i, r := range d.Entries {
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		b.WriteString("\n<board-response index=\"")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\" model=\"")
		b.WriteString(escapeAttr(r.Model.String()))
		b.WriteString("\" status=\"")
		b.WriteString(status)
		b.WriteString("\">\n")
		b.WriteString(escapeText(r.Text()))
		b.WriteString("\n</board-response>\n")
	}

	return b.String()
}

// ParsedEntry is one board-response element recovered from a rendered
// document.
type ParsedEntry struct {
	Index  int
	Model  string
	Status string
	Text   string
}

// ParseDocument recovers the original prompt and the board-response
// entries from a rendered packet. It exists for verification (the
// inspect command and the round-trip tests); the arbiter consumes the
// rendered text directly.
func ParseDocument(doc string) (string, []ParsedEntry, error) {
	prompt, err := parseElement(doc, "original-prompt")
	if err != nil {
		return "", nil, err
	}

	var entries []ParsedEntry
	rest := doc
	for {
		open := strings.Index(rest, "<board-response ")
		if open < 0 {
			break
		}
		rest = rest[open:]

		tagEnd := strings.Index(rest, ">")
		if tagEnd < 0 {
			return "", nil, fmt.Errorf("unterminated board-response tag")
		}
		attrs := rest[len("<board-response ") : tagEnd]

		closeIdx := strings.Index(rest, "</board-response>")
		if closeIdx < 0 {
			return "", nil, fmt.Errorf("missing board-response close tag")
		}
		body := strings.TrimPrefix(rest[tagEnd+1:closeIdx], "\n")
		body = strings.TrimSuffix(body, "\n")

		entry := ParsedEntry{Text: unescapeText(body)}
		entry.Model = unescapeText(attrValue(attrs, "model"))
		entry.Status = attrValue(attrs, "status")
		if idx, convErr := strconv.Atoi(attrValue(attrs, "index")); convErr == nil {
			entry.Index = idx
		}
		entries = append(entries, entry)

		rest = rest[closeIdx+len("</board-response>"):]
	}

	return prompt, entries, nil
}

// parseElement extracts and unescapes the body of the single element
// with the given name.
func parseElement(doc, name string) (string, error) {
	openTag := "<" + name + ">"
	closeTag := "</" + name + ">"

	open := strings.Index(doc, openTag)
	if open < 0 {
		return "", fmt.Errorf("missing %s element", name)
	}
	closeIdx := strings.Index(doc[open:], closeTag)
	if closeIdx < 0 {
		return "", fmt.Errorf("unterminated %s element", name)
	}

	body := doc[open+len(openTag) : open+closeIdx]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\n")
	return unescapeText(body), nil
}

// attrValue pulls one double-quoted attribute value out of a tag's
// attribute text.
func attrValue(attrs, name string) string {
	marker := name + `="`
	start := strings.Index(attrs, marker)
	if start < 0 {
		return ""
	}
	rest := attrs[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
