// Package stage defines the contract shared by the collect, summarize,
// aggregate, and render stages: the Handler interface, per-unit tallies, and
// readiness reporting.
package stage
