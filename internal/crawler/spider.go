package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescribe/internal/model"
)

// State is the lifecycle state of a Spider.
type State int

const (
	// StateIdle is a Spider that has not started.
	StateIdle State = iota
	// StateRunning is a Spider inside Crawl.
	StateRunning
	// StateDone is a Spider whose crawl has finished or been cancelled.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Spider crawls a single host breadth-first within a page budget.
//
// A URL is marked visited when it is taken from the frontier, before it is
// fetched. New links are enqueued only while visited plus queued URLs stay
// below the budget, so the visited set can never exceed it. With more than
// one worker, URLs are taken in waves and each wave's results are applied in
// dequeue order, which keeps the output identical to a sequential crawl of
// the same wave boundaries.
//
// A same-host redirect marks its target visited too. The page is recorded
// under the target URL, or dropped when the target was already visited.
//
// A Spider runs once. Create a new one for every crawl.
type Spider struct {
	fetcher Fetcher

	maxPages     int
	workers      int
	keepQuery    bool
	contentLimit int

	// ignorePatterns are URL path globs never enqueued.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs enqueued.
	followPatterns []string

	logger   *slog.Logger
	progress func(Progress)

	mutex    sync.Mutex
	state    State
	visited  map[string]bool // taken URLs and redirect targets
	order    []string        // taken URLs, bounded by maxPages
	frontier *Frontier
	failed   int
}

// Progress is reported after every page.
type Progress struct {
	// Page is the page just recorded.
	Page *model.Page

	// Visited is the number of URLs visited so far.
	Visited int

	// MaxPages is the budget.
	MaxPages int
}

// Result is the outcome of a crawl.
type Result struct {
	// Pages are all visited pages in crawl order, failed pages included.
	Pages []*model.Page

	// Visited lists the visited canonical URLs in visit order.
	Visited []string

	// Discarded are URLs still queued when the crawl stopped.
	Discarded []string

	// State is StateDone once Crawl returns.
	State State

	// Cancelled is true when the context ended the crawl early.
	Cancelled bool
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget. Non-positive values are ignored.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithWorkers sets the number of concurrent fetches. The default is 1.
func WithWorkers(workers int) SpiderOption {
	return func(s *Spider) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithKeepQuery keeps query strings in canonical URLs.
func WithKeepQuery(keep bool) SpiderOption {
	return func(s *Spider) {
		s.keepQuery = keep
	}
}

// WithPageContentLimit sets how many characters of text are kept per page.
func WithPageContentLimit(limit int) SpiderOption {
	return func(s *Spider) {
		if limit > 0 {
			s.contentLimit = limit
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after each recorded page.
// It is called from the crawling goroutine, never concurrently.
func WithProgress(fn func(Progress)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// NewSpider creates a Spider using the given fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:      fetcher,
		maxPages:     50,
		workers:      1,
		contentLimit: 5000,
		logger:       slog.Default(),
		visited:      make(map[string]bool),
		frontier:     NewFrontier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Spider) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Crawl visits pages reachable from startURL on the same host.
//
// Fetch failures are recorded as failed pages and never stop the crawl.
// The context is checked between steps; on cancellation the pages recorded
// so far are returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	s.mutex.Lock()
	if s.state != StateIdle {
		s.mutex.Unlock()
		return nil, ErrSpiderUsed
	}
	s.state = StateRunning
	s.mutex.Unlock()

	start, err := Canonicalize(startURL, s.keepQuery)
	if err != nil {
		s.finish()
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}

	extractor := NewExtractor(
		WithScopeHost(HostOf(start)),
		WithExtractorKeepQuery(s.keepQuery),
		WithContentLimit(s.contentLimit),
	)

	s.mutex.Lock()
	s.frontier.Push(start)
	s.mutex.Unlock()

	s.logger.Info("crawl started", "url", start, "max_pages", s.maxPages, "workers", s.workers)

	result := &Result{Pages: make([]*model.Page, 0)}
	for {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		batch := s.nextBatch()
		if len(batch) == 0 {
			break
		}

		pages := make([]*model.Page, len(batch))
		var g errgroup.Group
		g.SetLimit(s.workers)
		for i, u := range batch {
			g.Go(func() error {
				pages[i] = s.visit(ctx, extractor, u)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // visit never returns an error

		for _, page := range pages {
			if page == nil {
				continue
			}
			result.Pages = append(result.Pages, page)
			for _, link := range page.Links {
				s.enqueue(link)
			}
			s.report(page)
		}
	}

	s.mutex.Lock()
	result.Discarded = s.frontier.Drain()
	result.Visited = append([]string(nil), s.order...)
	s.mutex.Unlock()
	s.finish()
	result.State = StateDone

	s.logger.Info("crawl finished",
		"visited", len(result.Visited),
		"discarded", len(result.Discarded),
		"cancelled", result.Cancelled,
	)

	if result.Cancelled {
		return result, ctx.Err()
	}
	return result, nil
}

func (s *Spider) finish() {
	s.mutex.Lock()
	s.state = StateDone
	s.mutex.Unlock()
}

// nextBatch takes up to workers URLs from the frontier and marks them
// visited in the same critical section.
func (s *Spider) nextBatch() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	batch := make([]string, 0, s.workers)
	for len(batch) < s.workers && len(s.order) < s.maxPages {
		u, ok := s.frontier.Pop()
		if !ok {
			break
		}
		if s.visited[u] {
			continue
		}
		s.visited[u] = true
		s.order = append(s.order, u)
		batch = append(batch, u)
	}
	return batch
}

// enqueue adds link to the frontier if it is unseen, allowed by the
// patterns and the budget still has room.
func (s *Spider) enqueue(link string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.visited[link] || s.frontier.Contains(link) {
		return false
	}
	if len(s.order)+s.frontier.Len() >= s.maxPages {
		return false
	}
	if !s.shouldCrawl(link) {
		return false
	}
	return s.frontier.Push(link)
}

// visit fetches and extracts one URL. It returns nil only when the URL
// redirected to a page that is already visited.
func (s *Spider) visit(ctx context.Context, extractor *Extractor, pageURL string) *model.Page {
	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		failure := failureOf(err)
		s.logger.Warn("page failed", "url", pageURL, "kind", failure.Kind, "reason", failure.Reason)
		return model.NewFailedPage(pageURL, failure)
	}

	target, ok := s.claimRedirect(pageURL, resp.URL)
	if !ok {
		s.logger.Debug("redirect target already visited", "url", pageURL, "target", target)
		return nil
	}
	pageURL = target

	page, err := extractor.Extract(Document{
		URL:         pageURL,
		BaseURL:     resp.URL,
		ContentType: resp.ContentType,
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
	})
	if err != nil {
		s.logger.Warn("page could not be parsed", "url", pageURL, "error", err)
		return model.NewFailedPage(pageURL, model.FetchFailure{
			Kind:       model.FailurePermanent,
			Reason:     "parse error: " + err.Error(),
			StatusCode: resp.StatusCode,
		})
	}
	return page
}

// claimRedirect marks the canonical form of finalURL visited when it
// differs from pageURL. It returns the URL the page is recorded under and
// false when another visit already owns it.
func (s *Spider) claimRedirect(pageURL, finalURL string) (string, bool) {
	if finalURL == "" || finalURL == pageURL {
		return pageURL, true
	}
	target, err := Canonicalize(finalURL, s.keepQuery)
	if err != nil || target == pageURL {
		return pageURL, true
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.visited[target] {
		return target, false
	}
	s.visited[target] = true
	return target, true
}

func (s *Spider) report(page *model.Page) {
	s.mutex.Lock()
	if !page.OK() {
		s.failed++
	}
	visited := len(s.order)
	s.mutex.Unlock()

	if s.progress != nil {
		s.progress(Progress{Page: page, Visited: visited, MaxPages: s.maxPages})
	}
}

func failureOf(err error) model.FetchFailure {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Failure
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.FetchFailure{Kind: model.FailureCancelled, Reason: err.Error()}
	}
	return model.FetchFailure{Kind: model.FailureTransient, Reason: err.Error()}
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		Visited: len(s.order),
		Failed:  s.failed,
		Queued:  s.frontier.Len(),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// Visited is the number of URLs taken from the frontier.
	Visited int

	// Failed is the number of recorded pages that failed.
	Failed int

	// Queued is the number of URLs waiting in the frontier.
	Queued int
}

// shouldCrawl checks a URL against the ignore and follow patterns.
// Ignore wins; when follow patterns exist, one must match.
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
