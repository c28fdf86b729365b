// Package textutil provides the small text helpers shared by the scraper,
// prompt builders, and report renderer.
//
// The primary use cases are:
//   - Normalizing scraped text to NFC with collapsed whitespace
//   - Truncating notes on rune boundaries for prompts
//   - Producing single-line snippets of provider responses for logs
package textutil
