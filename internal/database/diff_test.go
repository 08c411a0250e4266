package database

import (
	"slices"
	"testing"
)

func TestComparePages(t *testing.T) {
	t.Parallel()

	previous := []PageRecord{
		{URL: "https://example.com/", Status: "ok", ContentHash: "a"},
		{URL: "https://example.com/docs", Status: "ok", ContentHash: "b"},
		{URL: "https://example.com/old", Status: "ok", ContentHash: "c"},
		{URL: "https://example.com/flaky", Status: "failed"},
		{URL: "https://example.com/stable", Status: "ok", ContentHash: "d"},
	}
	current := []PageRecord{
		{URL: "https://example.com/", Status: "ok", ContentHash: "a"},
		{URL: "https://example.com/docs", Status: "ok", ContentHash: "b2"},
		{URL: "https://example.com/flaky", Status: "ok", ContentHash: "e"},
		{URL: "https://example.com/stable", Status: "failed"},
		{URL: "https://example.com/new", Status: "ok", ContentHash: "f"},
	}

	got := ComparePages(previous, current)

	if !slices.Equal(got.Added, []string{"https://example.com/new"}) {
		t.Errorf("expected /new added, got %v", got.Added)
	}
	if !slices.Equal(got.Removed, []string{"https://example.com/old"}) {
		t.Errorf("expected /old removed, got %v", got.Removed)
	}
	if !slices.Equal(got.Changed, []string{"https://example.com/docs"}) {
		t.Errorf("expected /docs changed, got %v", got.Changed)
	}
	if !slices.Equal(got.Recovered, []string{"https://example.com/flaky"}) {
		t.Errorf("expected /flaky recovered, got %v", got.Recovered)
	}
	if !slices.Equal(got.Broken, []string{"https://example.com/stable"}) {
		t.Errorf("expected /stable broken, got %v", got.Broken)
	}
	if got.Unchanged != 1 {
		t.Errorf("expected 1 unchanged page, got %d", got.Unchanged)
	}
	if got.Empty() {
		t.Error("expected changes not to be empty")
	}

	t.Run("identical runs", func(t *testing.T) {
		t.Parallel()

		same := ComparePages(previous, previous)
		if !same.Empty() {
			t.Errorf("expected no changes, got %+v", same)
		}
		if same.Unchanged != len(previous) {
			t.Errorf("expected %d unchanged, got %d", len(previous), same.Unchanged)
		}
	})
}
