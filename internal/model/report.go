package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunReport collects everything produced by one run: the crawled pages,
// the modules derived from them and the per-module outcome of analysis
// and rendering. Pipeline steps fill it in order.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// TargetURL is the start URL as configured.
	TargetURL string `json:"target_url"`

	// Host is the crawl scope.
	Host string `json:"host"`

	// MaxPages is the page budget used for the run.
	MaxPages int `json:"max_pages"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step finished.
	FinishedAt time.Time `json:"finished_at"`

	// Pages are all visited pages in crawl order, failed ones included.
	Pages []*Page `json:"pages"`

	// Discarded counts URLs left in the frontier when the crawl stopped.
	Discarded int `json:"discarded"`

	// Cancelled is true when the crawl was interrupted.
	Cancelled bool `json:"cancelled"`

	// Modules are derived from Pages after the crawl.
	Modules []*Module `json:"modules,omitempty"`

	// Outcomes hold one entry per module in module order.
	Outcomes []*ModuleOutcome `json:"outcomes,omitempty"`

	// IndexPath is the path of the run index document, if written.
	IndexPath string `json:"index_path,omitempty"`
}

// ModuleOutcome is the result of analyzing and rendering one module.
type ModuleOutcome struct {
	// Module is the module name.
	Module string `json:"module"`

	// Analysis is nil only if analysis itself could not run.
	Analysis *AnalysisResult `json:"analysis,omitempty"`

	// OutputPath is the written document, empty on failure.
	OutputPath string `json:"output_path,omitempty"`

	// Error describes a rendering or writing failure.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the module document was written.
func (o *ModuleOutcome) Succeeded() bool {
	return o.Error == "" && o.OutputPath != ""
}

// NewRunReport creates a report for the given target with a fresh run ID.
func NewRunReport(targetURL string, maxPages int) *RunReport {
	host := ""
	if u, err := url.Parse(targetURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	return &RunReport{
		RunID:     uuid.NewString(),
		TargetURL: targetURL,
		Host:      host,
		MaxPages:  maxPages,
		StartedAt: time.Now(),
	}
}

// SucceededPages returns the number of successfully fetched pages.
func (r *RunReport) SucceededPages() int {
	n := 0
	for _, p := range r.Pages {
		if p.OK() {
			n++
		}
	}
	return n
}

// FailedPages returns the failed pages in crawl order.
func (r *RunReport) FailedPages() []*Page {
	var failed []*Page
	for _, p := range r.Pages {
		if !p.OK() {
			failed = append(failed, p)
		}
	}
	return failed
}

// Summary computes the end-of-run counts.
func (r *RunReport) Summary() RunSummary {
	s := RunSummary{
		PagesSucceeded: r.SucceededPages(),
		Discarded:      r.Discarded,
		Cancelled:      r.Cancelled,
	}
	s.PagesFailed = len(r.Pages) - s.PagesSucceeded

	for _, o := range r.Outcomes {
		if o.Succeeded() {
			s.ModulesSucceeded++
		} else {
			s.ModulesFailed++
		}
		if o.Analysis != nil && o.Analysis.FellBack() {
			s.AnalysisFallbacks++
		}
	}
	return s
}

// RunSummary holds the counts printed at the end of a run.
type RunSummary struct {
	PagesSucceeded    int  `json:"pages_succeeded"`
	PagesFailed       int  `json:"pages_failed"`
	Discarded         int  `json:"discarded"`
	ModulesSucceeded  int  `json:"modules_succeeded"`
	ModulesFailed     int  `json:"modules_failed"`
	AnalysisFallbacks int  `json:"analysis_fallbacks"`
	Cancelled         bool `json:"cancelled"`
}
