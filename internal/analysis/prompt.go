package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/sitescribe/internal/model"
)

// Prompt budget defaults.
const (
	DefaultMaxPromptPages  = 10
	DefaultPreviewChars    = 500
	DefaultMaxPromptChars  = 12000
	DefaultMaxPromptTokens = 4000
)

// systemPrompt is sent as the system message where the provider supports one.
const systemPrompt = "You analyze sections of documentation websites. Reply with a single JSON object and nothing else."

// promptTemplate wraps the module content. The %s verb receives the
// module content block.
const promptTemplate = `Analyze this website module and provide:

1. A concise summary (2-3 paragraphs) of what this module covers
2. 3-5 specific things that could be built or projects that could be created based on this content
3. Key technologies or concepts mentioned

Module content:
%s

Format your response as JSON with keys: summary, buildable_projects (array), key_concepts (array)`

// PromptBudget bounds the module text sent to a language model.
//
// Pages are taken in crawl order, successful pages only, up to MaxPages.
// Each page contributes its title, URL and the first PreviewChars
// characters of its content. Whole pages are dropped from the tail while
// the content block exceeds MaxChars or the full prompt exceeds MaxTokens.
// The first page is always kept; if it alone exceeds MaxChars its block is
// cut to MaxChars.
type PromptBudget struct {
	MaxPages     int
	PreviewChars int
	MaxChars     int
	MaxTokens    int
}

// withDefaults fills zero fields.
func (b PromptBudget) withDefaults() PromptBudget {
	if b.MaxPages <= 0 {
		b.MaxPages = DefaultMaxPromptPages
	}
	if b.PreviewChars <= 0 {
		b.PreviewChars = DefaultPreviewChars
	}
	if b.MaxChars <= 0 {
		b.MaxChars = DefaultMaxPromptChars
	}
	if b.MaxTokens <= 0 {
		b.MaxTokens = DefaultMaxPromptTokens
	}
	return b
}

// Prompt is a rendered analysis prompt.
type Prompt struct {
	// System is the system instruction.
	System string

	// User is the user message including the module content.
	User string

	// Pages is the number of pages included.
	Pages int
}

// BuildPrompt renders the analysis prompt for a module under the budget.
// counter may be nil, in which case only the character limit applies.
func BuildPrompt(module *model.Module, budget PromptBudget, counter TokenCounter) Prompt {
	budget = budget.withDefaults()

	pages := module.SuccessfulPages()
	if len(pages) > budget.MaxPages {
		pages = pages[:budget.MaxPages]
	}

	header := fmt.Sprintf("Module: %s\n\n", module.Name)
	sections := make([]string, 0, len(pages))
	size := utf8.RuneCountInString(header)
	for i, p := range pages {
		section := pageSection(i+1, p, budget.PreviewChars)
		n := utf8.RuneCountInString(section)
		if size+n > budget.MaxChars {
			if len(sections) == 0 {
				sections = append(sections, truncateRunes(section, max(budget.MaxChars-size, 0)))
			}
			break
		}
		sections = append(sections, section)
		size += n
	}

	render := func(sections []string) string {
		return fmt.Sprintf(promptTemplate, header+strings.Join(sections, ""))
	}

	user := render(sections)
	if counter != nil {
		for len(sections) > 1 && counter.CountTokens(systemPrompt)+counter.CountTokens(user) > budget.MaxTokens {
			sections = sections[:len(sections)-1]
			user = render(sections)
		}
	}

	return Prompt{System: systemPrompt, User: user, Pages: len(sections)}
}

func pageSection(n int, p *model.Page, previewChars int) string {
	return fmt.Sprintf("Page %d: %s\nURL: %s\nContent preview: %s...\n\n",
		n, p.Title, p.URL, truncateRunes(p.Content, previewChars))
}

// truncateRunes returns at most limit runes of s.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
