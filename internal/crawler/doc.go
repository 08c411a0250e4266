// Package crawler discovers and fetches the pages of one website.
//
// # Components
//
//   - Canonicalize: the single URL identity used for deduplication
//   - HTTPFetcher: GET with politeness delay and failure classification
//   - Extractor: title, clean text, word count and same-host links
//   - Frontier: FIFO queue without duplicates
//   - Spider: breadth-first scheduler bounded by a page budget
//
// # Scope
//
// Only links whose host equals the start URL's host are followed. Subdomains
// and other ports are different hosts. The query string is dropped from
// canonical URLs unless WithKeepQuery is set.
//
// # Usage
//
//	limiter := ratelimit.New(500 * time.Millisecond)
//	fetcher := crawler.NewHTTPFetcher(nil, crawler.WithLimiter(limiter))
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxPages(50))
//	result, err := spider.Crawl(ctx, "https://example.com")
package crawler
