package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// ErrUnknownFormat is returned by NewRenderer for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// ModuleReport is everything a renderer needs for one module document.
// Renderers only read it; nothing is fetched again.
type ModuleReport struct {
	// Module is the module with its pages in crawl order.
	Module *model.Module

	// Analysis is the module analysis.
	Analysis *model.AnalysisResult

	// SourceURL is the crawl start URL.
	SourceURL string

	// GeneratedAt is the generation timestamp shown in the document.
	GeneratedAt time.Time
}

// Renderer turns a module report into one document.
type Renderer interface {
	// Render writes the document to w.
	Render(w io.Writer, report *ModuleReport) error

	// Extension returns the file extension including the dot, e.g. ".md".
	Extension() string
}

// NewRenderer returns the renderer for a format name. The empty name
// selects Markdown.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", FormatMarkdown:
		return NewMarkdownRenderer(), nil
	case FormatJSON:
		return NewJSONRenderer(WithPrettyPrint()), nil
	case FormatText:
		return NewTextRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// pageStatus returns the inventory status text of a page.
func pageStatus(p *model.Page) string {
	if p.OK() {
		return "ok"
	}
	return "failed (" + p.FailureReason() + ")"
}

// truncateString truncates s to maxLen characters with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
