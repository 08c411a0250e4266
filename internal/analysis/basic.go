package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

// conceptPattern matches candidate keywords: runs of four or more ASCII letters.
var conceptPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

// maxConcepts is the number of key concepts the basic analyzer reports.
const maxConcepts = 5

// stopwords are frequent English words that never count as concepts.
var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true,
	"being": true, "both": true, "could": true, "does": true, "each": true,
	"even": true, "from": true, "have": true, "here": true, "into": true,
	"just": true, "like": true, "make": true, "many": true, "more": true,
	"most": true, "much": true, "only": true, "other": true, "over": true,
	"should": true, "some": true, "such": true, "than": true, "that": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true, "very": true,
	"well": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "will": true, "with": true, "within": true,
	"would": true, "your": true,
}

// Basic is the deterministic analyzer used without a language model.
// The same module always yields the same result.
type Basic struct{}

// NewBasic returns a Basic analyzer.
func NewBasic() *Basic {
	return &Basic{}
}

// Name returns "basic".
func (b *Basic) Name() string {
	return model.SourceBasic
}

// Analyze builds a summary from page and word counts, three project ideas
// and the most frequent keywords of the successfully fetched pages.
func (b *Basic) Analyze(_ context.Context, module *model.Module) (*model.AnalysisResult, error) {
	concepts := topConcepts(module.SuccessfulPages(), maxConcepts)

	summary := fmt.Sprintf("This module '%s' contains %d pages with approximately %d words.",
		module.Name, len(module.Pages), module.WordCount())
	if len(concepts) > 0 {
		summary += fmt.Sprintf(" The content covers topics related to %s.", strings.Join(concepts, ", "))
	} else {
		summary += " No recurring topics were found in the text."
	}

	first := "Documentation website"
	if pages := module.SuccessfulPages(); len(pages) > 0 {
		first = "Project based on " + pages[0].Title
	}

	return &model.AnalysisResult{
		Summary: summary,
		Projects: []string{
			first,
			"Tutorial application for " + module.Name,
			"Reference implementation",
		},
		KeyConcepts: concepts,
		Source:      model.SourceBasic,
	}, nil
}

// topConcepts counts keywords over the pages' content and returns the n most
// frequent, ties broken alphabetically.
func topConcepts(pages []*model.Page, n int) []string {
	freq := make(map[string]int)
	for _, p := range pages {
		for _, w := range conceptPattern.FindAllString(strings.ToLower(p.Content), -1) {
			if stopwords[w] {
				continue
			}
			freq[w]++
		}
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}
