package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/ratelimit"
)

// Fetcher retrieves one URL.
type Fetcher interface {
	// Fetch performs a GET for pageURL. Failures are returned as *FetchError.
	Fetch(ctx context.Context, pageURL string) (*Response, error)
}

// Response is a successfully fetched HTML document.
type Response struct {
	// RequestURL is the URL that was requested.
	RequestURL string

	// URL is the final URL after redirects. Relative links resolve against it.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the response body, capped at the fetcher's max body size.
	Body []byte
}

// HTTPFetcher fetches pages over HTTP and applies the politeness limiter
// around every request.
type HTTPFetcher struct {
	client      *http.Client
	limiter     *ratelimit.Limiter
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	logger      *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithLimiter sets the politeness limiter. Without one there is no delay.
func WithLimiter(l *ratelimit.Limiter) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.limiter = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many bytes of a body are read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a client with a
// 10 second timeout.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	f := &HTTPFetcher{
		client:      client,
		limiter:     ratelimit.New(0),
		userAgent:   "sitescribe/1.0",
		maxBodySize: 5 * 1024 * 1024,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET for pageURL. After the request completes, whatever
// the outcome, it blocks for the limiter's politeness delay.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Response, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, newFetchError(pageURL, model.FailureCancelled, 0, "cancelled before request", err)
	}
	defer func() {
		_ = f.limiter.Pause(ctx) //nolint:errcheck // cancellation is observed by the caller
	}()

	resp, err := f.do(ctx, pageURL)
	if err != nil {
		f.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return nil, err
	}
	f.logger.Debug("fetched", "url", pageURL, "status", resp.StatusCode, "bytes", len(resp.Body))
	return resp, nil
}

func (f *HTTPFetcher) do(ctx context.Context, pageURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, newFetchError(pageURL, model.FailurePermanent, 0, "invalid request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(pageURL, resp.StatusCode)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if HostOf(finalURL) != HostOf(pageURL) {
		return nil, newFetchError(pageURL, model.FailurePermanent, resp.StatusCode,
			"redirected to "+HostOf(finalURL), ErrOffHostRedirect)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, newFetchError(pageURL, model.FailurePermanent, resp.StatusCode,
			"non-HTML content type "+contentType, ErrNonHTML)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, classifyTransportError(ctx, pageURL, err)
	}

	return &Response{
		RequestURL:  pageURL,
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// isHTMLContentType accepts text/html, application/xhtml+xml and a missing header.
func isHTMLContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// classifyStatus maps 429 and 5xx to transient failures and every other
// non-2xx status to a permanent one.
func classifyStatus(pageURL string, status int) *FetchError {
	reason := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	err := fmt.Errorf("%w: %d", ErrHTTPStatus, status)
	if status == http.StatusTooManyRequests || status >= 500 {
		return newFetchError(pageURL, model.FailureTransient, status, reason, err)
	}
	return newFetchError(pageURL, model.FailurePermanent, status, reason, err)
}

// classifyTransportError separates cancellation from network trouble.
// Timeouts, resets and refused connections are all transient.
func classifyTransportError(ctx context.Context, pageURL string, err error) *FetchError {
	if ctx.Err() != nil {
		return newFetchError(pageURL, model.FailureCancelled, 0, "cancelled", ctx.Err())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newFetchError(pageURL, model.FailureTransient, 0, "timeout", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newFetchError(pageURL, model.FailureTransient, 0, "connection error: "+urlErr.Err.Error(), err)
	}
	return newFetchError(pageURL, model.FailureTransient, 0, err.Error(), err)
}
