package summarizer

import "github.com/CivicActions/Drupal-ACR/internal/textutil"

// Response labels.
const (
	LabelCompliance = "COMPLIANCE_NOTE"
	LabelDeveloper  = "DEVELOPER_NOTE"
	LabelTitle      = "TITLE_ASSESSMENT"
	LabelCriterion  = "CRITERION_ASSESSMENT"
)

// Placeholders written when a section is missing or empty.
const (
	PlaceholderCompliance = "Unable to generate compliance note."
	PlaceholderDeveloper  = "Unable to generate developer note."
	PlaceholderTitle      = "Unable to assess title."
	PlaceholderCriterion  = "Unable to assess criterion."
)

// Field is one labeled section of a response.
type Field struct {
	Value   string
	Present bool
}

// Or returns the value when present and placeholder otherwise.
func (f Field) Or(placeholder string) string {
	if f.Present {
		return f.Value
	}
	return placeholder
}

// Parsed holds the four sections of a summary response.
type Parsed struct {
	Compliance Field
	Developer  Field
	Title      Field
	Criterion  Field
}

// ParseResponse reads the four labeled sections. Missing or blank sections are
// reported as not present.
func ParseResponse(text string) Parsed {
	sections := textutil.Sections(text, LabelCompliance, LabelDeveloper, LabelTitle, LabelCriterion)
	field := func(label string) Field {
		value := sections[label]
		return Field{Value: value, Present: value != ""}
	}
	return Parsed{
		Compliance: field(LabelCompliance),
		Developer:  field(LabelDeveloper),
		Title:      field(LabelTitle),
		Criterion:  field(LabelCriterion),
	}
}

// Missing counts sections that will be replaced by placeholders.
func (p Parsed) Missing() int {
	missing := 0
	for _, f := range []Field{p.Compliance, p.Developer, p.Title, p.Criterion} {
		if !f.Present {
			missing++
		}
	}
	return missing
}
