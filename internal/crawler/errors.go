package crawler

import (
	"errors"
	"fmt"

	"github.com/nao1215/sitescribe/internal/model"
)

var (
	// ErrInvalidURL is returned for URLs that cannot be parsed or have no host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrHTTPStatus is wrapped by fetch errors caused by a non-2xx response.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrNonHTML is wrapped by fetch errors caused by a non-HTML content type.
	ErrNonHTML = errors.New("content is not HTML")

	// ErrOffHostRedirect is wrapped when a redirect leaves the crawl host.
	ErrOffHostRedirect = errors.New("redirected to another host")

	// ErrSpiderUsed is returned when Crawl is called on a Spider that already ran.
	ErrSpiderUsed = errors.New("spider has already crawled; create a new one")
)

// FetchError is a failed fetch with its transient or permanent classification.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// Failure is the classification recorded on the page.
	Failure model.FetchFailure

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Failure.String())
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying later could succeed.
func (e *FetchError) Transient() bool {
	return e.Failure.Kind == model.FailureTransient
}

func newFetchError(u string, kind model.FailureKind, status int, reason string, err error) *FetchError {
	return &FetchError{
		URL: u,
		Failure: model.FetchFailure{
			Kind:       kind,
			Reason:     reason,
			StatusCode: status,
		},
		Err: err,
	}
}
