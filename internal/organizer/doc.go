// Package organizer groups crawled pages into named content modules.
//
// A page belongs to the module of the first segment of its URL path:
// /docs/install goes to "Docs", / and /index.html go to the root module
// ("Home" unless configured). Segments are compared after normalization so
// that /Docs, /docs and /documentation.html share a module, and /guide
// merges with /guides.
//
// Normalization of a segment:
//
//  1. path-unescape and lowercase
//  2. strip .html, .htm, .php, .asp, .aspx, .jsp and .md
//  3. turn "-", "_", "." and "+" into spaces
//  4. map index, default and home to the root
//  5. apply aliases (documentation and docs become doc, plus configured ones)
//  6. singularize the last word, leaving invariant words such as news alone
//
// The display name is the title-cased first segment seen for a module, with
// known acronyms upper-cased.
package organizer
