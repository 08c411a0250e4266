package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/nao1215/sitescribe/internal/model"
)

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func moduleWithPages(n int, content string) *model.Module {
	m := &model.Module{Name: "Docs"}
	for i := range n {
		m.Pages = append(m.Pages, page(
			fmt.Sprintf("https://example.com/docs/p%d", i+1),
			fmt.Sprintf("Page title %d", i+1),
			content,
		))
	}
	return m
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	t.Run("includes module name and pages in order", func(t *testing.T) {
		t.Parallel()

		p := BuildPrompt(moduleWithPages(2, "hello"), PromptBudget{}, nil)
		if p.Pages != 2 {
			t.Errorf("expected 2 pages, got %d", p.Pages)
		}
		if !strings.Contains(p.User, "Module: Docs") {
			t.Error("expected module name in prompt")
		}
		first := strings.Index(p.User, "Page 1: Page title 1")
		second := strings.Index(p.User, "Page 2: Page title 2")
		if first < 0 || second < first {
			t.Errorf("expected pages in crawl order, got:\n%s", p.User)
		}
		if !strings.Contains(p.User, "URL: https://example.com/docs/p1") {
			t.Error("expected page URL in prompt")
		}
		if !strings.Contains(p.User, "buildable_projects") {
			t.Error("expected the JSON instructions in prompt")
		}
		if p.System == "" {
			t.Error("expected a system prompt")
		}
	})

	t.Run("limits pages and previews", func(t *testing.T) {
		t.Parallel()

		p := BuildPrompt(moduleWithPages(15, strings.Repeat("x", 800)), PromptBudget{MaxChars: 1 << 20}, nil)
		if p.Pages != DefaultMaxPromptPages {
			t.Errorf("expected %d pages, got %d", DefaultMaxPromptPages, p.Pages)
		}
		if strings.Contains(p.User, "Page 11:") {
			t.Error("expected page 11 to be left out")
		}
		if strings.Contains(p.User, strings.Repeat("x", DefaultPreviewChars+1)) {
			t.Error("expected previews cut to 500 characters")
		}
		if !strings.Contains(p.User, strings.Repeat("x", DefaultPreviewChars)+"...") {
			t.Error("expected a full 500 character preview")
		}
	})

	t.Run("skips failed pages", func(t *testing.T) {
		t.Parallel()

		m := moduleWithPages(1, "ok")
		m.Pages = append([]*model.Page{
			model.NewFailedPage("https://example.com/docs/broken", model.FetchFailure{Kind: model.FailureTransient}),
		}, m.Pages...)

		p := BuildPrompt(m, PromptBudget{}, nil)
		if strings.Contains(p.User, "broken") {
			t.Error("expected failed page to be excluded")
		}
		if p.Pages != 1 {
			t.Errorf("expected 1 page, got %d", p.Pages)
		}
	})

	t.Run("drops tail pages over the character budget", func(t *testing.T) {
		t.Parallel()

		m := moduleWithPages(5, strings.Repeat("y", 400))
		section := len(pageSection(1, m.Pages[0], DefaultPreviewChars))
		header := len("Module: Docs\n\n")

		p := BuildPrompt(m, PromptBudget{MaxChars: header + 2*section + 10}, nil)
		if p.Pages != 2 {
			t.Errorf("expected 2 pages within the budget, got %d", p.Pages)
		}
	})

	t.Run("cuts a single oversized page", func(t *testing.T) {
		t.Parallel()

		p := BuildPrompt(moduleWithPages(1, strings.Repeat("z", 400)), PromptBudget{MaxChars: 50}, nil)
		if p.Pages != 1 {
			t.Fatalf("expected the first page to be kept, got %d", p.Pages)
		}
		if strings.Contains(p.User, strings.Repeat("z", 100)) {
			t.Error("expected the page block to be cut")
		}
	})

	t.Run("drops tail pages over the token budget", func(t *testing.T) {
		t.Parallel()

		m := moduleWithPages(6, strings.Repeat("word ", 50))
		full := BuildPrompt(m, PromptBudget{MaxTokens: 1 << 20}, wordCounter{})
		if full.Pages != 6 {
			t.Fatalf("expected 6 pages without a tight budget, got %d", full.Pages)
		}

		counter := wordCounter{}
		limit := counter.CountTokens(full.System) + counter.CountTokens(full.User) - 100
		p := BuildPrompt(m, PromptBudget{MaxTokens: limit}, counter)
		if p.Pages >= 6 || p.Pages < 1 {
			t.Errorf("expected fewer pages under the token budget, got %d", p.Pages)
		}
		if got := counter.CountTokens(p.System) + counter.CountTokens(p.User); got > limit {
			t.Errorf("expected at most %d tokens, got %d", limit, got)
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		m := moduleWithPages(12, "same content")
		a := BuildPrompt(m, PromptBudget{}, HeuristicCounter{})
		b := BuildPrompt(m, PromptBudget{}, HeuristicCounter{})
		if a != b {
			t.Error("expected identical prompts")
		}
	})
}

func TestHeuristicCounter(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":         0,
		"abc":      1,
		"abcd":     1,
		"abcde":    2,
		"12345678": 2,
	}
	for in, want := range tests {
		if got := (HeuristicCounter{}).CountTokens(in); got != want {
			t.Errorf("CountTokens(%q) = %d, want %d", in, got, want)
		}
	}
}
