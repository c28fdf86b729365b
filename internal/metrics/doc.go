// Package metrics counts outbound requests, retries, and per-unit outcomes and
// can persist them as a Prometheus textfile for node-exporter collection.
package metrics
