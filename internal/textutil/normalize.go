package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize converts text to NFC and collapses every whitespace run, including
// newlines, to a single space.
func Normalize(text string) string {
	return CollapseSpace(norm.NFC.String(text))
}

// CollapseSpace trims text and replaces whitespace runs with single spaces.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeBlock converts text to NFC while keeping paragraph breaks. Runs of
// blank lines become a single blank line and each line is trimmed.
func NormalizeBlock(text string) string {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRightFunc(CollapseSpace(line), unicode.IsSpace)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Truncate shortens text to at most limit runes, ending with "..." when cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return strings.TrimRightFunc(string(runes[:limit-3]), unicode.IsSpace) + "..."
}

// Snippet returns a single-line, truncated rendering of content for logs.
func Snippet(content string, limit int) string {
	clean := CollapseSpace(content)
	if clean == "" {
		return "<empty>"
	}
	return Truncate(clean, limit)
}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
