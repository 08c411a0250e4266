package model

import (
	"testing"
)

func TestNewRunReport(t *testing.T) {
	t.Parallel()

	r := NewRunReport("https://Example.com/start", 25)
	if r.RunID == "" {
		t.Error("expected run ID to be set")
	}
	if r.Host != "example.com" {
		t.Errorf("expected host example.com, got %s", r.Host)
	}
	if r.MaxPages != 25 {
		t.Errorf("expected MaxPages 25, got %d", r.MaxPages)
	}
	if r.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	other := NewRunReport("https://example.com", 25)
	if other.RunID == r.RunID {
		t.Error("expected distinct run IDs")
	}
}

func TestRunReportSummary(t *testing.T) {
	t.Parallel()

	r := NewRunReport("https://example.com", 10)
	r.Pages = []*Page{
		{URL: "https://example.com/", Status: StatusOK},
		{URL: "https://example.com/a", Status: StatusOK},
		NewFailedPage("https://example.com/broken", FetchFailure{Kind: FailureTransient, Reason: "timeout"}),
	}
	r.Discarded = 4
	r.Outcomes = []*ModuleOutcome{
		{Module: "Home", OutputPath: "reports/home_analysis.md", Analysis: &AnalysisResult{Source: SourceBasic}},
		{Module: "A", OutputPath: "reports/a_analysis.md", Analysis: &AnalysisResult{Source: SourceBasic, FallbackReason: "no credit"}},
		{Module: "Broken", Error: "disk full", Analysis: &AnalysisResult{Source: SourceBasic}},
	}

	s := r.Summary()
	if s.PagesSucceeded != 2 || s.PagesFailed != 1 {
		t.Errorf("expected 2 succeeded and 1 failed page, got %d and %d", s.PagesSucceeded, s.PagesFailed)
	}
	if s.ModulesSucceeded != 2 || s.ModulesFailed != 1 {
		t.Errorf("expected 2 succeeded and 1 failed module, got %d and %d", s.ModulesSucceeded, s.ModulesFailed)
	}
	if s.AnalysisFallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", s.AnalysisFallbacks)
	}
	if s.Discarded != 4 {
		t.Errorf("expected 4 discarded, got %d", s.Discarded)
	}

	failed := r.FailedPages()
	if len(failed) != 1 || failed[0].URL != "https://example.com/broken" {
		t.Errorf("expected /broken as the only failed page, got %v", failed)
	}
}
