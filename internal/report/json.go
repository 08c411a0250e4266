package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

// JSONRenderer writes module documents as JSON for tool integration.
type JSONRenderer struct {
	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONRendererOption configures a JSONRenderer.
type JSONRendererOption func(*JSONRenderer)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONRendererOption {
	return func(r *JSONRenderer) {
		r.indent = true
		r.indentPrefix = prefix
		r.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONRendererOption {
	return WithIndent("", "  ")
}

// NewJSONRenderer creates a JSONRenderer. Output is compact by default.
func NewJSONRenderer(opts ...JSONRendererOption) *JSONRenderer {
	r := &JSONRenderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extension returns ".json".
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// JSONDocument is the JSON form of a module document.
type JSONDocument struct {
	Module         string        `json:"module"`
	SourceURL      string        `json:"source_url"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Summary        string        `json:"summary"`
	Projects       []string      `json:"buildable_projects"`
	KeyConcepts    []string      `json:"key_concepts"`
	AnalysisSource string        `json:"analysis_source"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	WordCount      int           `json:"word_count"`
	Pages          []JSONPageRef `json:"pages"`
}

// JSONPageRef is one entry of the page inventory.
type JSONPageRef struct {
	URL       string              `json:"url"`
	Title     string              `json:"title"`
	WordCount int                 `json:"word_count"`
	Status    model.FetchStatus   `json:"status"`
	Failure   *model.FetchFailure `json:"failure,omitempty"`
}

// NewJSONDocument builds the JSON document for a report.
func NewJSONDocument(report *ModuleReport) *JSONDocument {
	doc := &JSONDocument{
		Module:         report.Module.Name,
		SourceURL:      report.SourceURL,
		GeneratedAt:    report.GeneratedAt,
		Summary:        report.Analysis.Summary,
		Projects:       report.Analysis.Projects,
		KeyConcepts:    report.Analysis.KeyConcepts,
		AnalysisSource: report.Analysis.Source,
		FallbackReason: report.Analysis.FallbackReason,
		WordCount:      report.Module.WordCount(),
		Pages:          make([]JSONPageRef, 0, len(report.Module.Pages)),
	}
	for _, p := range report.Module.Pages {
		doc.Pages = append(doc.Pages, JSONPageRef{
			URL:       p.URL,
			Title:     p.Title,
			WordCount: p.WordCount,
			Status:    p.Status,
			Failure:   p.Failure,
		})
	}
	return doc
}

// Render writes the document followed by a newline.
func (r *JSONRenderer) Render(w io.Writer, report *ModuleReport) error {
	var (
		data []byte
		err  error
	)
	doc := NewJSONDocument(report)
	if r.indent {
		data, err = json.MarshalIndent(doc, r.indentPrefix, r.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
