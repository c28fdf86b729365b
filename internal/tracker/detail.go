package tracker

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// Detail is the metadata read from an issue page. Every field is best effort;
// anything not found is left empty or zero.
type Detail struct {
	Project       string
	Status        string
	Priority      string
	Component     string
	Version       string
	Reporter      string
	Created       string
	Updated       string
	CommentCount  int
	HasFork       bool
	LastCommenter string
}

// DetailParser turns a raw issue page into Detail.
type DetailParser interface {
	Parse(page string) Detail
}

// DetailParserFunc adapts a function to DetailParser.
type DetailParserFunc func(page string) Detail

// Parse calls f.
func (f DetailParserFunc) Parse(page string) Detail {
	return f(page)
}

// RegexDetailParser reads the issue metadata sidebar and comment markup of
// drupal.org issue pages using regular expressions, falling back to the
// "Label: value" text layout when the field classes are missing.
type RegexDetailParser struct{}

var (
	fieldPatterns = map[string]*regexp.Regexp{
		"status":    fieldClassPattern("status"),
		"priority":  fieldClassPattern("priority"),
		"component": fieldClassPattern("component"),
		"version":   fieldClassPattern("version"),
	}

	projectPattern      = regexp.MustCompile(`(?i)href="(?:https?://(?:www\.)?drupal\.org)?/project/(?:issues/)?([a-z0-9_]+)(?:/issues)?"`)
	reporterPattern     = regexp.MustCompile(`(?is)class="[^"]*\bsubmitted\b[^"]*"[^>]*>.*?<a[^>]*>(.*?)</a>`)
	commentIDPattern    = regexp.MustCompile(`\bid="comment-(\d+)"`)
	commentOrdinal      = regexp.MustCompile(`(?i)(?:Comment\s*#|>#)(\d+)\b`)
	datetimePattern     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	usernameLinkPattern = regexp.MustCompile(`(?is)<a[^>]+href="(?:https?://(?:www\.)?drupal\.org)?/u/[^"]+"[^>]*>(.*?)</a>`)
	usernameSpan        = regexp.MustCompile(`(?is)class="[^"]*\busername\b[^"]*"[^>]*>(.*?)</`)

	forkCallToAction = regexp.MustCompile(`(?i)create\s+(?:a\s+)?(?:new\s+)?issue\s+fork`)
	forkMarkers      = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/merge_requests/\d+`),
		regexp.MustCompile(`(?i)\bmerge\s+request\s+!\d+`),
		regexp.MustCompile(`(?i)\bMR\s+!\d+`),
		regexp.MustCompile(`(?i)git\.drupalcode\.org/issue/[a-z0-9_]+-\d+`),
		regexp.MustCompile(`(?i)\bissue\s+fork\s+[a-z0-9_]+-\d+`),
	}
)

func fieldClassPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)field--name-field-issue-` + name + `\b.*?field__item[^>]*>(.*?)</div>`)
}

var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
	"01/02/2006",
}

// Parse implements DetailParser.
func (RegexDetailParser) Parse(page string) Detail {
	lines := TextLines(page)
	d := Detail{
		Status:    fieldValue(page, lines, "status", "Status"),
		Priority:  fieldValue(page, lines, "priority", "Priority"),
		Component: fieldValue(page, lines, "component", "Component"),
		Version:   fieldValue(page, lines, "version", "Version"),
		Reporter:  labelValue(lines, "Reporter"),
		Created:   NormalizeDate(labelValue(lines, "Created")),
		Updated:   NormalizeDate(labelValue(lines, "Updated")),
	}
	if d.Reporter == "" {
		if m := reporterPattern.FindStringSubmatch(page); m != nil {
			d.Reporter = CellText(m[1])
		}
	}
	for _, m := range projectPattern.FindAllStringSubmatch(page, -1) {
		if !strings.EqualFold(m[1], "issues") {
			d.Project = strings.ToLower(m[1])
			break
		}
	}
	d.CommentCount = CountComments(page)
	d.LastCommenter = lastCommenter(page, lines)
	d.HasFork = HasForkActivity(page)
	return d
}

func fieldValue(page string, lines []string, field, label string) string {
	if m := fieldPatterns[field].FindStringSubmatch(page); m != nil {
		if value := CellText(m[1]); value != "" {
			return value
		}
	}
	return labelValue(lines, label)
}

// labelValue finds "Label: value" in a single text node, or "Label:" followed
// by the value in the next node.
func labelValue(lines []string, label string) string {
	prefix := strings.ToLower(label)
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := strings.TrimSpace(line[len(label):])
		if !strings.HasPrefix(rest, ":") && rest != "" {
			continue
		}
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		if rest != "" {
			return rest
		}
		if i+1 < len(lines) {
			return lines[i+1]
		}
	}
	return ""
}

// NormalizeDate converts the date formats used on issue pages to YYYY-MM-DD.
// Unrecognized input yields "".
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if m := datetimePattern.FindString(value); m != "" {
		return m
	}
	if idx := strings.Index(strings.ToLower(value), " at "); idx > 0 {
		value = value[:idx]
	}
	value = textutil.CollapseSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// CountComments counts uniquely identified comment blocks. When the highest
// "Comment #N" permalink ordinal is larger, it is used instead, since paged
// comment threads only render part of the discussion.
func CountComments(page string) int {
	unique := make(map[string]bool)
	for _, m := range commentIDPattern.FindAllStringSubmatch(page, -1) {
		unique[m[1]] = true
	}
	count := len(unique)
	for _, m := range commentOrdinal.FindAllStringSubmatch(page, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > count {
			count = n
		}
	}
	return count
}

// HasForkActivity reports whether the page shows an actual merge request or
// issue fork. The "Create issue fork" call to action alone does not count.
func HasForkActivity(page string) bool {
	cleaned := forkCallToAction.ReplaceAllString(page, " ")
	for _, marker := range forkMarkers {
		if marker.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// lastCommenter reads the author following the latest comment anchor that
// carries one, falling back to the "Updated by" sidebar field.
func lastCommenter(page string, lines []string) string {
	anchors := commentIDPattern.FindAllStringIndex(page, -1)
	for i := len(anchors) - 1; i >= 0; i-- {
		tail := page[anchors[i][0]:]
		if len(tail) > 4000 {
			tail = tail[:4000]
		}
		for _, pattern := range []*regexp.Regexp{usernameSpan, usernameLinkPattern} {
			if m := pattern.FindStringSubmatch(tail); m != nil {
				if name := CellText(m[1]); name != "" {
					return name
				}
			}
		}
	}
	for _, label := range []string{"Updated by", "Last updated by"} {
		if name := labelValue(lines, label); name != "" {
			return name
		}
	}
	return ""
}
