package renderer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/CivicActions/Drupal-ACR/internal/model"
)

// ComponentWeb is the only component slot carrying the assessed adherence.
const ComponentWeb = "web"

// FixedComponents are always rendered as not applicable.
var FixedComponents = []string{"electronic-docs", "software", "authoring-tool"}

// Chapter keys for the generated WCAG sections.
var tierChapters = []struct {
	Tier model.Tier
	Key  string
}{
	{model.TierA, "success_criteria_level_a"},
	{model.TierAA, "success_criteria_level_aa"},
	{model.TierAAA, "success_criteria_level_aaa"},
}

// BoilerplateChapters lists the static chapters in output order.
var BoilerplateChapters = []string{
	"hardware",
	"software",
	"support_documentation_and_services",
	"functional_performance_criteria",
}

//go:embed templates/boilerplate.yaml
var boilerplateYAML []byte

// ChapterKey returns the chapter key for tier, defaulting to level AA.
func ChapterKey(tier model.Tier) string {
	for _, c := range tierChapters {
		if c.Tier == tier {
			return c.Key
		}
	}
	return "success_criteria_level_aa"
}

// Chapters builds the chapters mapping: one section per tier followed by the
// static boilerplate chapters. Entries must already be in report order.
func Chapters(entries []model.RenderedEntry) (*yaml.Node, error) {
	buckets := make(map[string][]*yaml.Node, len(tierChapters))
	for _, entry := range entries {
		key := ChapterKey(entry.Tier)
		buckets[key] = append(buckets[key], criterionNode(entry))
	}

	chapters := mapping()
	for _, c := range tierChapters {
		set(chapters, c.Key, mapping(
			scalar("notes"), textNode(""),
			scalar("criteria"), sequence(buckets[c.Key]...),
		))
	}

	boilerplate, err := loadMapping(boilerplateYAML)
	if err != nil {
		return nil, fmt.Errorf("parse boilerplate: %w", err)
	}
	for _, key := range BoilerplateChapters {
		chapter, _ := lookup(boilerplate, key)
		if chapter == nil {
			return nil, fmt.Errorf("boilerplate chapter %q missing", key)
		}
		set(chapters, key, chapter)
	}
	return chapters, nil
}

func criterionNode(entry model.RenderedEntry) *yaml.Node {
	components := sequence(mapping(
		scalar("name"), scalar(ComponentWeb),
		scalar("adherence"), mapping(
			scalar("level"), scalar(string(entry.Adherence)),
			scalar("notes"), textNode(entry.Notes),
		),
	))
	for _, name := range FixedComponents {
		components.Content = append(components.Content, mapping(
			scalar("name"), scalar(name),
			scalar("adherence"), mapping(
				scalar("level"), scalar(string(model.AdherenceNotApplicable)),
			),
		))
	}
	return mapping(
		scalar("num"), scalar(entry.WCAGCode),
		scalar("components"), components,
	)
}

// loadMapping parses data and returns its top-level mapping node.
func loadMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		if root := doc.Content[0]; root.Kind == yaml.MappingNode {
			return root, nil
		}
	}
	return nil, fmt.Errorf("top level is not a mapping")
}
