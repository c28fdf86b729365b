// Package llm wraps the generative-text providers used by the summarize and
// aggregate stages.
//
// The default provider calls the Gemini generateContent endpoint over plain
// HTTP; the Anthropic Messages API is available through the official SDK. Both
// implement Provider with a single attempt per call. Errors are classified into
// rate limiting (429), overload (503), and network failures so callers can
// apply different retry policies to each.
package llm
