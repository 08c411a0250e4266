package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/sitescribe/internal/analysis"
	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/organizer"
	"github.com/nao1215/sitescribe/internal/ratelimit"
	"github.com/nao1215/sitescribe/internal/report"
)

// ErrEmptyCrawl is returned when the crawl produced no successful page,
// usually because the start URL is unreachable.
var ErrEmptyCrawl = errors.New("crawl produced no successful pages")

// CrawlStep crawls the target site and stores the pages in the report.
type CrawlStep struct {
	fetcher crawler.Fetcher

	maxPages       int
	workers        int
	keepQuery      bool
	contentLimit   int
	ignorePatterns []string
	followPatterns []string
	progress       func(crawler.Progress)

	// interrupt stops the crawl without cancelling the run. The pages
	// collected so far are kept and the following steps still run.
	interrupt context.Context

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxPages sets the page budget.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlWorkers sets the number of concurrent fetches.
func WithCrawlWorkers(workers int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.workers = workers
	}
}

// WithCrawlKeepQuery keeps query strings in canonical URLs.
func WithCrawlKeepQuery(keep bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.keepQuery = keep
	}
}

// WithCrawlContentLimit sets the number of text characters kept per page.
func WithCrawlContentLimit(limit int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.contentLimit = limit
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlProgress registers a function called after every recorded page.
func WithCrawlProgress(fn func(crawler.Progress)) CrawlStepOption {
	return func(s *CrawlStep) {
		s.progress = fn
	}
}

// WithCrawlInterrupt sets a context whose cancellation ends the crawl early
// while letting the rest of the run continue with the partial result.
func WithCrawlInterrupt(interrupt context.Context) CrawlStepOption {
	return func(s *CrawlStep) {
		s.interrupt = interrupt
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step that fetches through fetcher.
func NewCrawlStep(fetcher crawler.Fetcher, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		fetcher:      fetcher,
		maxPages:     config.DefaultMaxPages,
		workers:      config.DefaultWorkers,
		contentLimit: config.DefaultContentLimit,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.interrupt != nil {
		stop := context.AfterFunc(s.interrupt, cancel)
		defer stop()
		// AfterFunc calls cancel on its own goroutine.
		if s.interrupt.Err() != nil {
			cancel()
		}
	}

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(s.maxPages),
		crawler.WithWorkers(s.workers),
		crawler.WithKeepQuery(s.keepQuery),
		crawler.WithPageContentLimit(s.contentLimit),
		crawler.WithLogger(s.logger),
	}
	if len(s.ignorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(s.ignorePatterns))
	}
	if len(s.followPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(s.followPatterns))
	}
	if s.progress != nil {
		spiderOpts = append(spiderOpts, crawler.WithProgress(s.progress))
	}

	spider := crawler.NewSpider(s.fetcher, spiderOpts...)
	result, err := spider.Crawl(crawlCtx, report.TargetURL)
	if result == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	report.Pages = result.Pages
	report.Discarded = len(result.Discarded)
	report.Cancelled = result.Cancelled

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("crawl interrupted, continuing with partial results",
			"pages", len(result.Pages),
			"discarded", report.Discarded,
		)
	}

	stats := spider.Stats()
	s.logger.Info("crawl completed",
		"pages_visited", stats.Visited,
		"pages_failed", stats.Failed,
		"urls_queued", stats.Queued,
	)

	if report.SucceededPages() == 0 {
		return fmt.Errorf("%w: %s (%d visited)", ErrEmptyCrawl, report.TargetURL, len(report.Pages))
	}
	return nil
}

// OrganizeStep groups the crawled pages into modules.
type OrganizeStep struct {
	organizer *organizer.Organizer
	logger    *slog.Logger
}

// NewOrganizeStep creates a new organize step.
func NewOrganizeStep(org *organizer.Organizer, logger *slog.Logger) *OrganizeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizeStep{organizer: org, logger: logger}
}

// Name returns the step name.
func (s *OrganizeStep) Name() string {
	return "organize"
}

// Do executes the organize step.
func (s *OrganizeStep) Do(_ context.Context, report *model.RunReport) error {
	report.Modules = s.organizer.Organize(report.Pages)
	s.logger.Info("pages organized", "modules", len(report.Modules))
	return nil
}

// ModuleStep analyzes and renders every module.
type ModuleStep struct {
	processor *ModuleProcessor
}

// NewModuleStep creates a new module step.
func NewModuleStep(processor *ModuleProcessor) *ModuleStep {
	return &ModuleStep{processor: processor}
}

// Name returns the step name.
func (s *ModuleStep) Name() string {
	return "modules"
}

// Do executes the module step. Per-module failures are recorded in the
// outcomes; only cancellation is returned as an error.
func (s *ModuleStep) Do(ctx context.Context, report *model.RunReport) error {
	outcomes, err := s.processor.Process(ctx, report.Modules)
	report.Outcomes = outcomes
	return err
}

// IndexStep writes the run index next to the module documents.
type IndexStep struct {
	dir    string
	logger *slog.Logger
}

// NewIndexStep creates a new index step writing into dir.
func NewIndexStep(dir string, logger *slog.Logger) *IndexStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStep{dir: dir, logger: logger}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step. A failure is logged and does not fail the run.
func (s *IndexStep) Do(_ context.Context, run *model.RunReport) error {
	path, err := report.WriteIndexFile(s.dir, run)
	if err != nil {
		s.logger.Warn("failed to write index", "dir", s.dir, "error", err)
		return nil
	}
	run.IndexPath = path
	return nil
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.RunReport) error
}

// PersistStep stores the run in the history database.
type PersistStep struct {
	store  RunStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPersistStep creates a new persist step.
func NewPersistStep(store RunStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger, now: time.Now}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step. A failure is logged and does not fail the run.
func (s *PersistStep) Do(ctx context.Context, run *model.RunReport) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Warn("failed to save run", "run_id", run.RunID, "error", err)
		return nil
	}
	s.logger.Info("run saved to database", "run_id", run.RunID)
	return nil
}

// DefaultPipelineConfig holds the collaborators of the default pipeline
// that do not come from config.Config.
type DefaultPipelineConfig struct {
	// HTTPClient replaces the client built from the timeout.
	HTTPClient *http.Client

	// Clock drives the politeness delay. Nil uses the system clock.
	Clock ratelimit.Clock

	// Analyzer replaces the analyzer selected from the configuration.
	Analyzer analysis.Analyzer

	// Store enables the persist step when set.
	Store RunStore

	// Progress is called after every crawled page.
	Progress func(crawler.Progress)

	// Interrupt ends the crawl early and keeps the partial result.
	Interrupt context.Context

	// OnOutcome is called after every module.
	OnOutcome func(outcome *model.ModuleOutcome, index int)
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineHTTPClient sets the HTTP client used for crawling.
func WithPipelineHTTPClient(client *http.Client) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HTTPClient = client
	}
}

// WithPipelineClock sets the clock of the politeness limiter.
func WithPipelineClock(clock ratelimit.Clock) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Clock = clock
	}
}

// WithPipelineAnalyzer sets the analyzer.
func WithPipelineAnalyzer(analyzer analysis.Analyzer) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Analyzer = analyzer
	}
}

// WithPipelineStore enables persisting the run.
func WithPipelineStore(store RunStore) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineProgress sets the crawl progress callback.
func WithPipelineProgress(fn func(crawler.Progress)) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Progress = fn
	}
}

// WithPipelineInterrupt sets the crawl interrupt context.
func WithPipelineInterrupt(interrupt context.Context) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Interrupt = interrupt
	}
}

// WithPipelineOutcomeCallback sets the per-module callback.
func WithPipelineOutcomeCallback(fn func(outcome *model.ModuleOutcome, index int)) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OnOutcome = fn
	}
}

// DefaultPipeline builds the standard run: crawl, organize, analyze and
// render modules, write the index and, when a store is given, persist.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts collaborator options (WithPipelineStore, etc).
func DefaultPipeline(cfg *config.Config, pipelineOpts []Option, configOpts ...DefaultPipelineOption) (*Pipeline, error) {
	p := New(pipelineOpts...)
	logger := p.logger

	dc := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(dc)
	}

	renderer, err := report.NewRenderer(cfg.Format)
	if err != nil {
		return nil, err
	}

	analyzer := dc.Analyzer
	if analyzer == nil {
		analyzer, err = analysis.New(analysis.Settings{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
	}

	client := dc.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := ratelimit.New(cfg.CrawlDelay,
		ratelimit.WithClock(dc.Clock),
		ratelimit.WithMaxRate(cfg.MaxRequestsPerSecond),
	)
	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithLimiter(limiter),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaders(cfg.Site.Headers),
		crawler.WithFetcherLogger(logger),
	)

	crawlOpts := []CrawlStepOption{
		WithCrawlMaxPages(cfg.MaxPages),
		WithCrawlWorkers(cfg.Workers),
		WithCrawlKeepQuery(cfg.KeepQuery),
		WithCrawlContentLimit(cfg.ContentLimit),
		WithCrawlIgnorePatterns(cfg.Site.IgnorePatterns),
		WithCrawlFollowPatterns(cfg.Site.FollowPatterns),
		WithCrawlProgress(dc.Progress),
		WithCrawlInterrupt(dc.Interrupt),
		WithCrawlLogger(logger),
	}

	org := organizer.New(
		organizer.WithRootModuleName(cfg.RootModuleName),
		organizer.WithAliases(cfg.Site.ModuleAliases),
		organizer.WithLogger(logger),
	)

	processor := NewModuleProcessor(analyzer,
		report.NewDirWriter(cfg.OutputDir, renderer),
		WithConcurrency(cfg.ModuleWorkers),
		WithSourceURL(cfg.TargetURL),
		WithProcessorLogger(logger),
		WithOutcomeCallback(dc.OnOutcome),
	)

	p.AddSteps(
		NewCrawlStep(fetcher, crawlOpts...),
		NewOrganizeStep(org, logger),
		NewModuleStep(processor),
		NewIndexStep(cfg.OutputDir, logger),
	)
	if dc.Store != nil {
		p.AddStep(NewPersistStep(dc.Store, logger))
	}

	return p, nil
}
