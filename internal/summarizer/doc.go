// Package summarizer turns each collected issue into a short compliance and
// developer note.
//
// For every row of the issues artifact the summarizer fetches the issue page,
// extracts the description and the most relevant recent comments as Markdown,
// and asks the configured provider for four labeled sections. Missing
// sections are replaced with fixed placeholder text, and a provider failure
// after retries yields a row whose compliance note starts with "ERROR: ".
package summarizer
