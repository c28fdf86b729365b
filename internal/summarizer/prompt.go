package summarizer

import (
	"fmt"
	"strings"

	"github.com/CivicActions/Drupal-ACR/internal/criteria"
	"github.com/CivicActions/Drupal-ACR/internal/model"
	"github.com/CivicActions/Drupal-ACR/internal/textutil"
)

const promptTemplate = `You are an accessibility specialist reviewing a Drupal issue filed against WCAG success criterion %s (%s).

Issue title: %s
Project: %s
Status: %s
Priority: %s

Issue description:
%s

Recent comments (most relevant first):
%s

Respond with exactly these four labeled sections and nothing else:

COMPLIANCE_NOTE: One or two sentences describing the impact on users. Use one of these phrases: "blocks access", "significantly impairs", "creates difficulty", "minor inconvenience". Do not mention the criterion number.
DEVELOPER_NOTE: One or two sentences of guidance for a developer. Mention any patch, merge request, or issue fork activity shown above and how recent it appears.
TITLE_ASSESSMENT: "acceptable" if the title accurately describes the problem, otherwise a suggested replacement title of at most 80 characters.
CRITERION_ASSESSMENT: "agree" if the issue belongs under this criterion, otherwise the better criterion number and a short rationale.
`

// BuildPrompt renders the summary prompt for one issue.
func BuildPrompt(record model.IssueRecord, page Page) string {
	name := ""
	if c, ok := criteria.Lookup(record.WCAGCode); ok {
		name = c.Name
	}
	title := textutil.FirstNonEmpty(page.Title, record.Title)
	description := textutil.FirstNonEmpty(page.Description, "(no description available)")

	var comments strings.Builder
	for i, c := range page.Comments {
		author := textutil.FirstNonEmpty(c.Author, "unknown")
		fmt.Fprintf(&comments, "--- Comment %d by %s ---\n%s\n", i+1, author, c.Body)
	}
	if comments.Len() == 0 {
		comments.WriteString("(no comments)\n")
	}

	return fmt.Sprintf(promptTemplate,
		record.WCAGCode, name,
		title,
		textutil.FirstNonEmpty(record.Project, "unknown"),
		textutil.FirstNonEmpty(record.Status, "unknown"),
		textutil.FirstNonEmpty(record.Priority, "unknown"),
		description,
		strings.TrimRight(comments.String(), "\n"),
	)
}
