package tracker

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// CellText returns the visible text of an HTML fragment with entities decoded
// and whitespace collapsed.
func CellText(fragment string) string {
	var b strings.Builder
	for _, chunk := range textChunks(fragment) {
		b.WriteString(chunk)
		b.WriteByte(' ')
	}
	return textutil.Normalize(b.String())
}

// TextLines flattens a page into its non-empty text nodes, skipping script and
// style content.
func TextLines(page string) []string {
	chunks := textChunks(page)
	lines := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if line := textutil.Normalize(chunk); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func textChunks(fragment string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var chunks []string
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way the text so far is kept.
			return chunks
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(name) {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				chunks = append(chunks, string(tokenizer.Text()))
			}
		}
	}
}

func isSkippedTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
