package aggregator

import (
	"fmt"
	"strings"

	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

// NoteLimit bounds each member note embedded in the prompt.
const NoteLimit = 200

// Member is one issue contributing to a criterion assessment.
type Member struct {
	IssueID string
	Project string
	Title   string
	Note    string
}

// Labels requested from the provider.
const (
	LabelAssessment = "ASSESSMENT"
	LabelNarrative  = "NARRATIVE"
)

const promptTemplate = `You are preparing an Accessibility Conformance Report for Drupal.
Below are %d open issues tagged against WCAG success criterion %s (%s), each with a short compliance note.

%s

Decide how well Drupal conforms to this criterion given these open issues, then respond with exactly two labeled sections:

ASSESSMENT: one of SUPPORTED, PARTIALLY_SUPPORTED, NOT_SUPPORTED, NOT_APPLICABLE
NARRATIVE: one to three short paragraphs for a procurement reader. Group related problems together, describe their impact on users, and do not mention issue numbers or the criterion number.
`

// BuildPrompt renders the assessment prompt for one criterion.
func BuildPrompt(code string, members []Member) string {
	name := ""
	if c, ok := criteria.Lookup(code); ok {
		name = c.Name
	}
	var list strings.Builder
	for _, m := range members {
		note := textutil.Truncate(textutil.CollapseSpace(m.Note), NoteLimit)
		fmt.Fprintf(&list, "- Issue %s (%s): %s\n", m.IssueID, textutil.FirstNonEmpty(m.Project, "unknown project"), note)
	}
	return fmt.Sprintf(promptTemplate, len(members), code, name, strings.TrimRight(list.String(), "\n"))
}

// Parsed is the provider verdict for one criterion.
type Parsed struct {
	Level     model.AssessmentLevel
	LevelOK   bool
	Narrative string
}

// ParseResponse reads the assessment level and narrative. Only the first line
// of the assessment section is considered.
func ParseResponse(text string) Parsed {
	sections := textutil.Sections(text, LabelAssessment, LabelNarrative)
	var parsed Parsed
	if raw := sections[LabelAssessment]; raw != "" {
		first, _, _ := strings.Cut(raw, "\n")
		parsed.Level, parsed.LevelOK = model.ParseAssessmentLevel(first)
	}
	parsed.Narrative = sections[LabelNarrative]
	return parsed
}
