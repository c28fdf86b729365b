package textutil

import (
	"regexp"
	"strings"
)

// Sections splits a labeled response into its parts. A section starts at
// LABEL: (optionally wrapped in Markdown emphasis or list markers) either at
// the start of a line or after a word boundary mid-line, and runs to the next
// label or the end of text. Values are trimmed;
// when a label repeats, the first occurrence wins. Labels without a section
// are absent from the result.
func Sections(text string, labels ...string) map[string]string {
	out := make(map[string]string, len(labels))
	if len(labels) == 0 {
		return out
	}
	quoted := make([]string, len(labels))
	for i, label := range labels {
		quoted[i] = regexp.QuoteMeta(label)
	}
	pattern := regexp.MustCompile(`(?m)(?:^[ \t>*#_-]*|\b)(` + strings.Join(quoted, "|") + `)[*_]*\s*:[*_]*`)

	matches := pattern.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		label := text[m[2]:m[3]]
		if _, ok := out[label]; ok {
			continue
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out[label] = strings.TrimSpace(strings.Trim(strings.TrimSpace(text[m[1]:end]), "*_"))
	}
	return out
}
