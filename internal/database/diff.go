package database

// PageChanges lists what changed between the pages of two runs.
type PageChanges struct {
	// Added are URLs visited only in the current run.
	Added []string `json:"added,omitempty"`

	// Removed are URLs visited only in the previous run.
	Removed []string `json:"removed,omitempty"`

	// Changed are URLs whose content hash differs between runs.
	Changed []string `json:"changed,omitempty"`

	// Recovered are URLs that failed before and succeed now.
	Recovered []string `json:"recovered,omitempty"`

	// Broken are URLs that succeeded before and fail now.
	Broken []string `json:"broken,omitempty"`

	// Unchanged counts URLs present in both runs with the same content.
	Unchanged int `json:"unchanged"`
}

// Empty reports whether nothing changed.
func (c *PageChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0 &&
		len(c.Recovered) == 0 && len(c.Broken) == 0
}

// ComparePages compares the pages of a previous and a current run.
// Lists follow the crawl order of the run the URL comes from.
func ComparePages(previous, current []PageRecord) *PageChanges {
	changes := &PageChanges{}

	before := make(map[string]PageRecord, len(previous))
	for _, p := range previous {
		before[p.URL] = p
	}
	seen := make(map[string]bool, len(current))

	for _, cur := range current {
		seen[cur.URL] = true
		prev, ok := before[cur.URL]
		switch {
		case !ok:
			changes.Added = append(changes.Added, cur.URL)
		case prev.Status != cur.Status && cur.Status == "ok":
			changes.Recovered = append(changes.Recovered, cur.URL)
		case prev.Status != cur.Status:
			changes.Broken = append(changes.Broken, cur.URL)
		case prev.ContentHash != cur.ContentHash:
			changes.Changed = append(changes.Changed, cur.URL)
		default:
			changes.Unchanged++
		}
	}

	for _, p := range previous {
		if !seen[p.URL] {
			changes.Removed = append(changes.Removed, p.URL)
		}
	}

	return changes
}
