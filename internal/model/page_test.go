package model

import (
	"testing"
)

func TestNewFailedPage(t *testing.T) {
	t.Parallel()

	p := NewFailedPage("https://example.com/broken", FetchFailure{
		Kind:       FailureTransient,
		Reason:     "HTTP 503",
		StatusCode: 503,
	})

	if p.OK() {
		t.Error("expected failed page to not be OK")
	}
	if p.Content != "" || p.WordCount != 0 {
		t.Errorf("expected zero content, got %q (%d words)", p.Content, p.WordCount)
	}
	if len(p.Links) != 0 {
		t.Errorf("expected no links, got %v", p.Links)
	}
	if p.Title != UntitledPage {
		t.Errorf("expected title %q, got %q", UntitledPage, p.Title)
	}
	if p.StatusCode != 503 {
		t.Errorf("expected status code 503, got %d", p.StatusCode)
	}
	if got := p.FailureReason(); got != "transient: HTTP 503" {
		t.Errorf("expected failure reason 'transient: HTTP 503', got %q", got)
	}
}

func TestPagePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com", "/"},
		{"https://example.com/", "/"},
		{"https://example.com/docs/intro", "/docs/intro"},
		{"://bad", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			p := &Page{URL: tt.url}
			if got := p.Path(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("empty content gives empty hash", func(t *testing.T) {
		t.Parallel()
		p := &Page{}
		p.ComputeHash()
		if p.Hash != "" {
			t.Errorf("expected empty hash, got %s", p.Hash)
		}
	})

	t.Run("same content gives same hash", func(t *testing.T) {
		t.Parallel()
		a := &Page{Content: "hello world"}
		b := &Page{Content: "hello world"}
		a.ComputeHash()
		b.ComputeHash()
		if a.Hash == "" || a.Hash != b.Hash {
			t.Errorf("expected equal non-empty hashes, got %q and %q", a.Hash, b.Hash)
		}
		if len(a.Hash) != 64 {
			t.Errorf("expected 64 hex characters, got %d", len(a.Hash))
		}
	})
}

func TestModuleCounts(t *testing.T) {
	t.Parallel()

	m := &Module{
		Name: "Docs",
		Pages: []*Page{
			{URL: "https://example.com/docs", Status: StatusOK, WordCount: 10},
			NewFailedPage("https://example.com/docs/broken", FetchFailure{Kind: FailurePermanent, Reason: "HTTP 404"}),
			{URL: "https://example.com/docs/api", Status: StatusOK, WordCount: 5},
		},
	}

	if got := len(m.SuccessfulPages()); got != 2 {
		t.Errorf("expected 2 successful pages, got %d", got)
	}
	if got := m.FailedCount(); got != 1 {
		t.Errorf("expected 1 failed page, got %d", got)
	}
	if got := m.WordCount(); got != 15 {
		t.Errorf("expected 15 words, got %d", got)
	}
	if got := m.SuccessfulPages()[1].URL; got != "https://example.com/docs/api" {
		t.Errorf("expected crawl order to be kept, got %s", got)
	}
}
