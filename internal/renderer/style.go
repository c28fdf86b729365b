package renderer

import (
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// blockWidth is the longest single-line text kept inline.
const blockWidth = 80

const indicators = "-?:,[]{}#&*!|>'\"%@`"

// TextStyle picks the scalar style for a free-text value: literal blocks for
// multi-line text, folded blocks for long lines, double quotes for text a
// plain scalar would misread, and plain otherwise.
func TextStyle(value string) yaml.Style {
	switch {
	case strings.Contains(value, "\n"):
		return yaml.LiteralStyle
	case utf8.RuneCountInString(value) > blockWidth:
		return yaml.FoldedStyle
	case ambiguous(value):
		return yaml.DoubleQuotedStyle
	}
	return 0
}

func ambiguous(value string) bool {
	if value == "" {
		return true
	}
	if strings.TrimSpace(value) != value {
		return true
	}
	if strings.ContainsAny(value[:1], indicators) {
		return true
	}
	for _, s := range []string{": ", " #", "\"", "'", "  ", "\t"} {
		if strings.Contains(value, s) {
			return true
		}
	}
	return strings.HasSuffix(value, ":")
}

func textNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: TextStyle(value)}
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func mapping(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: pairs}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// lookup returns the value node for key in a mapping node.
func lookup(m *yaml.Node, key string) (*yaml.Node, int) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], i
		}
	}
	return nil, -1
}

// set replaces or appends key in a mapping node.
func set(m *yaml.Node, key string, value *yaml.Node) {
	if _, i := lookup(m, key); i >= 0 {
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content, scalar(key), value)
}
