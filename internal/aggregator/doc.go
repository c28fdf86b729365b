// Package aggregator folds the per-issue summaries of each WCAG criterion into
// a single conformance level and narrative.
//
// Provider errors are retried with a separate policy per error class, and an
// overloaded provider (HTTP 503) gets the longest waits. A criterion whose overload retries run
// out is written as NEEDS_REVIEW and queued for one more attempt after a
// cooldown at the end of the run.
package aggregator
