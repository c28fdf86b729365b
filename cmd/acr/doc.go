// Package main hosts the acr CLI entrypoint and command graph.
//
// The Cobra command tree exposes each pipeline stage (collect, summarize,
// aggregate, render) as its own command, plus `run` for the in-process
// pipeline and `status` for the latest artifacts.
// Configuration loading and the stage factory live in one command context so
// subcommands only translate flags into stage options.
//
// Keep this package lean: stage behavior lives in the internal packages and
// is surfaced here through flags.
package main
