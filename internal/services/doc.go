// Package services defines shared utilities consumed by the pipeline stages and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, run identifiers, and the criterion
//     code under work so log lines can be correlated.
//   - Structured error markers plus the Wrap helper. Markers separate the
//     failures that abort a stage (configuration, missing input) from the ones
//     that only degrade a single record or criterion.
//
// Use these helpers when wiring new stage logic so error handling stays uniform
// across collector, summarizer, aggregator, and renderer.
package services
