// Package artifact names, discovers, locks, reads, and writes the timestamped
// files that carry data between pipeline stages.
//
// Every stage writes a new file named <prefix>_YYYY-MM-DD_HH-mm.<ext>; the
// next stage picks the lexically greatest match unless given an explicit path.
// Files are written through a temporary sibling and renamed into place.
package artifact
