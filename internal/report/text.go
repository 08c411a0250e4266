package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

// ruleWidth is the width of section rules in text output.
const ruleWidth = 70

// TextRenderer writes module documents as plain text.
// The output uses ASCII rules only so it can be piped or printed anywhere.
type TextRenderer struct {
	// showContent adds each page's text preview to the inventory.
	showContent bool
}

// TextRendererOption configures a TextRenderer.
type TextRendererOption func(*TextRenderer)

// WithPageContent includes page text previews in the inventory.
func WithPageContent(show bool) TextRendererOption {
	return func(r *TextRenderer) {
		r.showContent = show
	}
}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer(opts ...TextRendererOption) *TextRenderer {
	r := &TextRenderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extension returns ".txt".
func (r *TextRenderer) Extension() string {
	return ".txt"
}

// Render writes the module document.
func (r *TextRenderer) Render(w io.Writer, report *ModuleReport) error {
	var sb strings.Builder

	r.writeHeader(&sb, report)
	r.writeSection(&sb, "SUMMARY")
	sb.WriteString(report.Analysis.Summary)
	sb.WriteString("\n\n")

	r.writeSection(&sb, "THINGS YOU CAN BUILD")
	for i, p := range report.Analysis.Projects {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, p)
	}
	sb.WriteString("\n")

	r.writeSection(&sb, "KEY CONCEPTS")
	if len(report.Analysis.KeyConcepts) == 0 {
		sb.WriteString("  No key concepts found\n")
	}
	for _, c := range report.Analysis.KeyConcepts {
		fmt.Fprintf(&sb, "  [+] %s\n", c)
	}
	sb.WriteString("\n")

	r.writePages(&sb, report.Module)
	r.writeFooter(&sb)

	_, err := io.WriteString(w, sb.String())
	return err
}

func (r *TextRenderer) writeHeader(sb *strings.Builder, report *ModuleReport) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "MODULE: %s\n", strings.ToUpper(report.Module.Name))
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Source:     %s\n", report.SourceURL)
	fmt.Fprintf(sb, "Generated:  %s\n", report.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Pages:      %d (%d failed)\n", len(report.Module.Pages), report.Module.FailedCount())
	fmt.Fprintf(sb, "Words:      %d\n", report.Module.WordCount())
	fmt.Fprintf(sb, "Analysis:   %s\n", report.Analysis.Source)
	if report.Analysis.FellBack() {
		fmt.Fprintf(sb, "Fallback:   %s\n", report.Analysis.FallbackReason)
	}
	sb.WriteString("\n")
}

func (r *TextRenderer) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (r *TextRenderer) writePages(sb *strings.Builder, module *model.Module) {
	r.writeSection(sb, "PAGES IN THIS MODULE")
	for i, p := range module.Pages {
		fmt.Fprintf(sb, "  %d. %s (%d words)\n", i+1, truncateString(p.Title, inventoryTitleWidth), p.WordCount)
		fmt.Fprintf(sb, "     %s\n", p.URL)
		if !p.OK() {
			fmt.Fprintf(sb, "     FAILED: %s\n", p.FailureReason())
		}
		if r.showContent && p.Content != "" {
			fmt.Fprintf(sb, "     %s\n", truncateString(strings.ReplaceAll(p.Content, "\n", " "), ruleWidth))
		}
	}
	sb.WriteString("\n")
}

func (r *TextRenderer) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Generated by sitescribe\n")
}
