package model

// Module is a named group of pages sharing a top-level path segment.
type Module struct {
	// Name is the display name, e.g. "Getting Started".
	Name string `json:"name"`

	// Key is the normalized grouping key. Pages whose first path segment
	// normalizes to the same key share a module.
	Key string `json:"key"`

	// Pages are in crawl order.
	Pages []*Page `json:"pages"`
}

// SuccessfulPages returns the pages that were fetched, in crawl order.
func (m *Module) SuccessfulPages() []*Page {
	pages := make([]*Page, 0, len(m.Pages))
	for _, p := range m.Pages {
		if p.OK() {
			pages = append(pages, p)
		}
	}
	return pages
}

// FailedCount returns the number of failed pages.
func (m *Module) FailedCount() int {
	n := 0
	for _, p := range m.Pages {
		if !p.OK() {
			n++
		}
	}
	return n
}

// WordCount sums the word counts of all pages.
func (m *Module) WordCount() int {
	total := 0
	for _, p := range m.Pages {
		total += p.WordCount
	}
	return total
}
