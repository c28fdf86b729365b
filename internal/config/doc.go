// Package config loads, normalizes, and validates pipeline configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the AI provider credential from
// the config file, the environment (GEMINI_API_KEY, GOOGLE_API_KEY or
// ANTHROPIC_API_KEY), or a local KEY=VALUE file. The credential is only
// enforced by stages that call the provider, through RequireLLM.
package config
