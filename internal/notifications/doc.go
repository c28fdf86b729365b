// Package notifications delivers pipeline events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when notifications are disabled. Stage runners emit completion
// and failure events; unknown events are ignored.
package notifications
