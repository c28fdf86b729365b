// Package tracker talks to the drupal.org issue queue.
//
// A Session owns the cookie jar, the rotating pool of command-line client
// identities, the polite pre-request delay, and transient-failure retries for a
// single run. HTTP 403 responses are surfaced as *BlockedError so the collector
// can run its feed and backoff fallback chain. Search pages, RSS feeds, and
// issue detail pages are parsed here; detail parsing sits behind the
// DetailParser interface so alternate strategies can be swapped in.
package tracker
