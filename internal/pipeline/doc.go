// Package pipeline chains the collect, summarize, aggregate and render stages
// in process. A run can resume from a stage, run a single stage, or skip
// stages; each stage hands off through the artifact directory exactly as the
// standalone commands do.
package pipeline
