// Package database provides SQLite-based run history for sitescribe.
//
// CrawlDB stores one row per run with its summary counts and one row per
// visited page with its module, status and content hash. The history
// command reads it back to list sites and runs, and ComparePages diffs
// the pages of two runs of the same site.
//
// The driver is modernc.org/sqlite, so the binary stays CGO-free and the
// database is a single file under the XDG data directory.
package database
