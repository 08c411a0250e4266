package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitescribe/internal/model"
)

// IndexFileName is the name of the run index document.
const IndexFileName = "index.md"

// IndexWriter writes the run index: one Markdown document linking every
// module document, with crawl statistics and a chart of pages per module.
type IndexWriter struct {
	output io.Writer
}

// NewIndexWriter creates an IndexWriter that outputs to the given writer.
func NewIndexWriter(output io.Writer) *IndexWriter {
	return &IndexWriter{output: output}
}

// Write outputs the index for the run.
func (w *IndexWriter) Write(run *model.RunReport) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeModules(md, run)
	w.writeChart(md, run)
	w.writeFailures(md, run)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by sitescribe*")

	return md.Build()
}

func (w *IndexWriter) writeHeader(md *markdown.Markdown, run *model.RunReport) {
	summary := run.Summary()

	md.H1("Site Report: " + run.Host)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", run.TargetURL},
			{"Run ID", "`" + run.RunID + "`"},
			{"Started", run.StartedAt.Format(timeLayout)},
			{"Page Budget", strconv.Itoa(run.MaxPages)},
			{"Pages Crawled", strconv.Itoa(summary.PagesSucceeded)},
			{"Pages Failed", strconv.Itoa(summary.PagesFailed)},
			{"URLs Not Visited", strconv.Itoa(summary.Discarded)},
			{"Modules", strconv.Itoa(len(run.Modules))},
		},
	})
	md.PlainText("")

	if run.Cancelled {
		md.Warningf("The crawl was interrupted after %d pages. Results are partial.", len(run.Pages))
		md.PlainText("")
	}
}

func (w *IndexWriter) writeModules(md *markdown.Markdown, run *model.RunReport) {
	md.H2("Modules")
	md.PlainText("")

	outcomes := make(map[string]*model.ModuleOutcome, len(run.Outcomes))
	for _, o := range run.Outcomes {
		outcomes[o.Module] = o
	}

	rows := make([][]string, 0, len(run.Modules))
	for _, m := range run.Modules {
		document, source := "-", "-"
		if o := outcomes[m.Name]; o != nil {
			if o.Succeeded() {
				name := filepath.Base(o.OutputPath)
				document = fmt.Sprintf("[%s](%s)", name, name)
			} else if o.Error != "" {
				document = "failed: " + o.Error
			}
			if o.Analysis != nil {
				source = o.Analysis.Source
				if o.Analysis.FellBack() {
					source += " (fallback)"
				}
			}
		}
		rows = append(rows, []string{
			m.Name,
			strconv.Itoa(len(m.Pages)),
			strconv.Itoa(m.WordCount()),
			source,
			document,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Module", "Pages", "Words", "Analysis", "Document"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeChart writes a mermaid pie chart of pages per module.
func (w *IndexWriter) writeChart(md *markdown.Markdown, run *model.RunReport) {
	if len(run.Modules) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Module"),
		piechart.WithShowData(true),
	)
	for _, m := range run.Modules {
		chart.LabelAndIntValue(m.Name, uint64(len(m.Pages)))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *IndexWriter) writeFailures(md *markdown.Markdown, run *model.RunReport) {
	failed := run.FailedPages()
	if len(failed) == 0 {
		md.Tip("Every visited page was fetched successfully.")
		md.PlainText("")
		return
	}

	md.H2("Failed Pages")
	md.PlainText("")
	rows := make([][]string, len(failed))
	for i, p := range failed {
		kind, reason := "-", "-"
		if p.Failure != nil {
			kind, reason = string(p.Failure.Kind), p.Failure.Reason
		}
		rows[i] = []string{p.URL, kind, reason}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteIndexFile writes index.md into dir and returns its path.
func WriteIndexFile(dir string, run *model.RunReport) (path string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path = filepath.Join(dir, IndexFileName)
	f, err := os.Create(path) //nolint:gosec // fixed file name inside the output directory
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := NewIndexWriter(f).Write(run); err != nil {
		return "", err
	}
	return path, nil
}
