// Package logging assembles structured slog loggers used across the pipeline.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code automatically tags log lines
// with the stage name, run identifier, and criterion code. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
