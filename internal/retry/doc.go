// Package retry provides per-error-class backoff policies and the Sleeper
// abstraction every pipeline wait goes through, so tests can run without real
// delays and cancellation is always honored.
package retry
