package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/sitescribe/internal/model"
)

// timeLayout is used for timestamps in documents.
const timeLayout = "2006-01-02 15:04:05 MST"

// inventoryTitleWidth is the maximum title length in the page table.
const inventoryTitleWidth = 50

// MarkdownRenderer writes module documents in Markdown.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Extension returns ".md".
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// Render writes the module document.
func (r *MarkdownRenderer) Render(w io.Writer, report *ModuleReport) error {
	md := markdown.NewMarkdown(w)

	r.writeHeader(md, report)
	r.writeSummary(md, report.Analysis)
	r.writeProjects(md, report.Analysis)
	r.writeConcepts(md, report.Analysis)
	r.writePages(md, report.Module)
	r.writeFooter(md)

	return md.Build()
}

// writeHeader writes the title and the metadata table.
func (r *MarkdownRenderer) writeHeader(md *markdown.Markdown, report *ModuleReport) {
	module := report.Module
	md.H1("Module: " + module.Name)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", report.SourceURL},
			{"Generated", report.GeneratedAt.Format(timeLayout)},
			{"Pages", strconv.Itoa(len(module.Pages))},
			{"Failed Pages", strconv.Itoa(module.FailedCount())},
			{"Words", strconv.Itoa(module.WordCount())},
			{"Analysis", report.Analysis.Source},
		},
	})
	md.PlainText("")

	if report.Analysis.FellBack() {
		md.Warningf("Language model analysis was unavailable, basic analysis used instead: %s",
			report.Analysis.FallbackReason)
		md.PlainText("")
	}
}

func (r *MarkdownRenderer) writeSummary(md *markdown.Markdown, analysis *model.AnalysisResult) {
	md.H2("Summary")
	md.PlainText("")
	md.PlainText(analysis.Summary)
	md.PlainText("")
}

func (r *MarkdownRenderer) writeProjects(md *markdown.Markdown, analysis *model.AnalysisResult) {
	md.H2("Things You Can Build")
	md.PlainText("")
	md.OrderedList(analysis.Projects...)
	md.PlainText("")
}

func (r *MarkdownRenderer) writeConcepts(md *markdown.Markdown, analysis *model.AnalysisResult) {
	md.H2("Key Concepts")
	md.PlainText("")
	if len(analysis.KeyConcepts) == 0 {
		md.PlainText("No key concepts found.")
		md.PlainText("")
		return
	}
	md.BulletList(analysis.KeyConcepts...)
	md.PlainText("")
}

// writePages writes the page inventory in crawl order.
func (r *MarkdownRenderer) writePages(md *markdown.Markdown, module *model.Module) {
	md.H2("Pages in This Module")
	md.PlainText("")

	rows := make([][]string, len(module.Pages))
	for i, p := range module.Pages {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateString(p.Title, inventoryTitleWidth),
			strconv.Itoa(p.WordCount),
			p.URL,
			pageStatus(p),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Words", "URL", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (r *MarkdownRenderer) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by sitescribe*")
}
