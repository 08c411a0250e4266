package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"
)

// FetchStatus is the outcome of fetching a page.
type FetchStatus string

const (
	// StatusOK means the page was fetched and parsed.
	StatusOK FetchStatus = "ok"
	// StatusFailed means the fetch or parse failed. The page has no content and no links.
	StatusFailed FetchStatus = "failed"
)

// FailureKind classifies a fetch failure.
type FailureKind string

const (
	// FailureTransient covers timeouts, connection errors, 5xx and 429 responses.
	FailureTransient FailureKind = "transient"
	// FailurePermanent covers other 4xx responses, non-HTML content and off-site redirects.
	FailurePermanent FailureKind = "permanent"
	// FailureCancelled is recorded when the run was cancelled mid-request.
	FailureCancelled FailureKind = "cancelled"
)

// FetchFailure describes why a page could not be fetched.
type FetchFailure struct {
	// Kind is the failure classification.
	Kind FailureKind `json:"kind"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`

	// StatusCode is the HTTP status when a response was received.
	StatusCode int `json:"status_code,omitempty"`
}

// String returns "kind: reason".
func (f FetchFailure) String() string {
	return string(f.Kind) + ": " + f.Reason
}

// Page is one crawled URL.
// Pages are created by the crawler and not modified afterwards.
type Page struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Title is the document title, or "Untitled".
	Title string `json:"title"`

	// Description is the meta description, if any.
	Description string `json:"description,omitempty"`

	// Content is the visible text with boilerplate removed, truncated to the
	// configured content limit.
	Content string `json:"content,omitempty"`

	// WordCount counts words in the full text before truncation.
	WordCount int `json:"word_count"`

	// Headings are the h1-h3 texts in document order.
	Headings []string `json:"headings,omitempty"`

	// Links are the canonical same-host URLs found on the page, in first-seen order.
	Links []string `json:"links,omitempty"`

	// Status is ok or failed.
	Status FetchStatus `json:"status"`

	// Failure is set when Status is failed.
	Failure *FetchFailure `json:"failure,omitempty"`

	// StatusCode is the HTTP response status code, 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the media type of the response.
	ContentType string `json:"content_type,omitempty"`

	// Hash is the SHA-256 of Content, used to spot duplicate pages across runs.
	Hash string `json:"hash,omitempty"`

	// FetchedAt is when the fetch finished.
	FetchedAt time.Time `json:"fetched_at"`
}

// UntitledPage is the title used when a page has neither <title> nor <h1>.
const UntitledPage = "Untitled"

// NewFailedPage returns a failed page with zero content and no links.
func NewFailedPage(canonicalURL string, failure FetchFailure) *Page {
	return &Page{
		URL:        canonicalURL,
		Title:      UntitledPage,
		Status:     StatusFailed,
		Failure:    &failure,
		StatusCode: failure.StatusCode,
		FetchedAt:  time.Now(),
	}
}

// OK reports whether the page was fetched successfully.
func (p *Page) OK() bool {
	return p.Status == StatusOK
}

// Path returns the URL path of the page, "/" for the root.
func (p *Page) Path() string {
	u, err := url.Parse(p.URL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// ComputeHash sets Hash from Content. Pages without content get an empty hash.
func (p *Page) ComputeHash() {
	if p.Content == "" {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256([]byte(p.Content))
	p.Hash = hex.EncodeToString(sum[:])
}

// FailureReason returns the failure description, or an empty string for successful pages.
func (p *Page) FailureReason() string {
	if p.Failure == nil {
		return ""
	}
	return p.Failure.String()
}
