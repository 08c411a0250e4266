package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

// SummaryWriter prints the end-of-run summary: pages and modules that
// succeeded or failed and why, analysis fallbacks and the written files.
type SummaryWriter struct {
	output io.Writer
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer) *SummaryWriter {
	return &SummaryWriter{output: output}
}

// Write outputs the summary of the run.
func (w *SummaryWriter) Write(run *model.RunReport) error {
	var sb strings.Builder
	s := run.Summary()

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Run summary for %s\n", run.TargetURL)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Pages:    %d succeeded, %d failed", s.PagesSucceeded, s.PagesFailed)
	if s.Discarded > 0 {
		fmt.Fprintf(&sb, ", %d not visited", s.Discarded)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Modules:  %d succeeded, %d failed\n", s.ModulesSucceeded, s.ModulesFailed)
	if s.AnalysisFallbacks > 0 {
		fmt.Fprintf(&sb, "Analysis: %d module(s) used basic analysis as fallback\n", s.AnalysisFallbacks)
	}
	if s.Cancelled {
		sb.WriteString("Status:   interrupted, results are partial\n")
	}

	if failed := run.FailedPages(); len(failed) > 0 {
		sb.WriteString("\nFailed pages:\n")
		for _, p := range failed {
			fmt.Fprintf(&sb, "  [-] %s: %s\n", p.URL, p.FailureReason())
		}
	}

	var written, failedModules, fallbacks []string
	for _, o := range run.Outcomes {
		if o.Succeeded() {
			written = append(written, o.OutputPath)
		} else {
			failedModules = append(failedModules, fmt.Sprintf("%s: %s", o.Module, o.Error))
		}
		if o.Analysis != nil && o.Analysis.FellBack() {
			fallbacks = append(fallbacks, fmt.Sprintf("%s: %s", o.Module, o.Analysis.FallbackReason))
		}
	}

	if len(failedModules) > 0 {
		sb.WriteString("\nFailed modules:\n")
		for _, m := range failedModules {
			fmt.Fprintf(&sb, "  [-] %s\n", m)
		}
	}
	if len(fallbacks) > 0 {
		sb.WriteString("\nAnalysis fallbacks:\n")
		for _, f := range fallbacks {
			fmt.Fprintf(&sb, "  [!] %s\n", f)
		}
	}
	if len(written) > 0 || run.IndexPath != "" {
		sb.WriteString("\nGenerated files:\n")
		for _, path := range written {
			fmt.Fprintf(&sb, "  [+] %s\n", path)
		}
		if run.IndexPath != "" {
			fmt.Fprintf(&sb, "  [+] %s\n", run.IndexPath)
		}
	}

	_, err := io.WriteString(w.output, sb.String())
	return err
}
