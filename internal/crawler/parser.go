package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/sitescribe/internal/model"
)

// boilerplateSelector matches elements removed before text is extracted.
const boilerplateSelector = "script, style, noscript, template, nav, footer, header"

// blockElements start a new line in the extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
	"pre": true, "blockquote": true, "table": true, "tr": true, "td": true, "th": true,
	"br": true, "hr": true, "figure": true, "figcaption": true, "form": true,
}

// Document is a fetched page handed to the Extractor.
type Document struct {
	// URL is the canonical URL recorded on the page.
	URL string

	// BaseURL is the URL relative links resolve against, normally the
	// final URL after redirects. Defaults to URL.
	BaseURL string

	// ContentType is the Content-Type header, used for charset detection.
	ContentType string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Body is the raw HTML.
	Body []byte
}

// Extractor turns HTML into a model.Page: title, clean text, word count,
// headings and the canonical same-host links.
type Extractor struct {
	scopeHost    string
	keepQuery    bool
	contentLimit int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithScopeHost restricts links to the given host. Without it, links are
// restricted to the host of each document's base URL.
func WithScopeHost(host string) ExtractorOption {
	return func(e *Extractor) {
		e.scopeHost = strings.ToLower(host)
	}
}

// WithExtractorKeepQuery keeps query strings in extracted links.
func WithExtractorKeepQuery(keep bool) ExtractorOption {
	return func(e *Extractor) {
		e.keepQuery = keep
	}
}

// WithContentLimit sets how many characters of text are kept per page.
func WithContentLimit(limit int) ExtractorOption {
	return func(e *Extractor) {
		if limit > 0 {
			e.contentLimit = limit
		}
	}
}

// NewExtractor creates an Extractor. The default content limit is 5000 characters.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{contentLimit: 5000}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractHTML extracts a page from an HTML string fetched from baseURL.
func (e *Extractor) ExtractHTML(htmlText, baseURL string) (*model.Page, error) {
	return e.Extract(Document{
		URL:         baseURL,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(htmlText),
	})
}

// Extract parses a document. Links are collected before boilerplate is
// stripped so navigation menus still feed the crawl, while the text and
// word count exclude them. A page without text is still returned, with a
// word count of 0.
func (e *Extractor) Extract(d Document) (*model.Page, error) {
	pageURL, err := Canonicalize(d.URL, e.keepQuery)
	if err != nil {
		return nil, err
	}
	baseRaw := d.BaseURL
	if baseRaw == "" {
		baseRaw = d.URL
	}
	base, err := url.Parse(baseRaw)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: base %q", ErrInvalidURL, baseRaw)
	}

	reader, err := charset.NewReader(bytes.NewReader(d.Body), d.ContentType)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil && b.IsAbs() {
			base = b
		}
	}

	scope := e.scopeHost
	if scope == "" {
		scope = HostOf(base.String())
	}

	page := &model.Page{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Links:       e.collectLinks(doc, base, scope),
		Status:      model.StatusOK,
		StatusCode:  d.StatusCode,
		ContentType: d.ContentType,
		FetchedAt:   time.Now(),
	}

	doc.Find(boilerplateSelector).Remove()

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpaces(s.Text()); text != "" {
			page.Headings = append(page.Headings, text)
		}
	})

	text := visibleText(contentRoot(doc))
	page.WordCount = len(strings.Fields(text))
	page.Content = truncateRunes(text, e.contentLimit)
	page.ComputeHash()

	return page, nil
}

// collectLinks resolves anchors, canonicalizes them and keeps same-host
// links in first-seen order.
func (e *Extractor) collectLinks(doc *goquery.Document, base *url.URL, scope string) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == nil {
			return
		}
		canonical, err := canonicalizeURL(resolved, e.keepQuery)
		if err != nil {
			return
		}
		if HostOf(canonical) != scope || seen[canonical] {
			return
		}
		seen[canonical] = true
		links = append(links, canonical)
	})

	return links
}

// resolveURL resolves href against base. Script, mail, phone and data
// links and bare fragments resolve to nil.
func resolveURL(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return base.ResolveReference(u)
}

func extractTitle(doc *goquery.Document) string {
	if title := collapseSpaces(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := collapseSpaces(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return model.UntitledPage
}

func extractDescription(doc *goquery.Document) string {
	var description string
	doc.Find("meta[content]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(name, "description") {
			return true
		}
		description, _ = s.Attr("content")
		description = collapseSpaces(description)
		return false
	})
	return description
}

// contentRoot prefers <main>, then <article>, then <body>.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// visibleText returns the text under the selection with one line per block
// element and runs of whitespace collapsed.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if blockElements[n.Data] {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapseSpaces(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most limit characters without splitting a rune.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
