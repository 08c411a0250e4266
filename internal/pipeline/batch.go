package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescribe/internal/analysis"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/report"
)

// DefaultModuleConcurrency is the number of modules processed at once
// when no concurrency is configured.
const DefaultModuleConcurrency = 4

// DocumentWriter stores one rendered module document and returns its path.
// report.DirWriter is the implementation used outside tests.
type DocumentWriter interface {
	Write(r *report.ModuleReport) (string, error)
}

// nameReserver is implemented by writers that assign file names in a fixed
// module order before concurrent writes start.
type nameReserver interface {
	Reserve(moduleNames ...string)
}

// ModuleProcessor analyzes and renders modules concurrently.
// Modules share nothing, so a failure in one never affects the others:
// it is recorded in that module's outcome and processing continues.
type ModuleProcessor struct {
	analyzer    analysis.Analyzer
	writer      DocumentWriter
	sourceURL   string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time

	// onOutcome is called from the worker goroutine that finished a module.
	onOutcome func(outcome *model.ModuleOutcome, index int)
}

// ModuleProcessorOption configures a ModuleProcessor.
type ModuleProcessorOption func(*ModuleProcessor)

// WithConcurrency sets the maximum number of modules processed at once.
func WithConcurrency(n int) ModuleProcessorOption {
	return func(mp *ModuleProcessor) {
		if n > 0 {
			mp.concurrency = n
		}
	}
}

// WithProcessorLogger sets a custom logger for module processing.
func WithProcessorLogger(logger *slog.Logger) ModuleProcessorOption {
	return func(mp *ModuleProcessor) {
		mp.logger = logger
	}
}

// WithSourceURL sets the source URL shown in every document.
func WithSourceURL(sourceURL string) ModuleProcessorOption {
	return func(mp *ModuleProcessor) {
		mp.sourceURL = sourceURL
	}
}

// WithProcessorClock sets the time source for document timestamps.
func WithProcessorClock(now func() time.Time) ModuleProcessorOption {
	return func(mp *ModuleProcessor) {
		if now != nil {
			mp.now = now
		}
	}
}

// WithOutcomeCallback registers a function called after each module.
// It runs on the worker goroutine, so it must be safe for concurrent use.
func WithOutcomeCallback(fn func(outcome *model.ModuleOutcome, index int)) ModuleProcessorOption {
	return func(mp *ModuleProcessor) {
		mp.onOutcome = fn
	}
}

// NewModuleProcessor creates a ModuleProcessor.
func NewModuleProcessor(analyzer analysis.Analyzer, writer DocumentWriter, opts ...ModuleProcessorOption) *ModuleProcessor {
	mp := &ModuleProcessor{
		analyzer:    analyzer,
		writer:      writer,
		concurrency: DefaultModuleConcurrency,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(mp)
	}

	if mp.logger == nil {
		mp.logger = slog.Default()
	}

	return mp
}

// Process analyzes and renders every module. Outcomes are returned in
// module order, one per module, whatever happened to the others.
// The error is non-nil only when ctx was cancelled; modules that did not
// start are then marked as cancelled.
func (mp *ModuleProcessor) Process(ctx context.Context, modules []*model.Module) ([]*model.ModuleOutcome, error) {
	mp.logger.Info("processing modules",
		"modules", len(modules),
		"concurrency", mp.concurrency,
	)
	startTime := time.Now()

	if r, ok := mp.writer.(nameReserver); ok {
		names := make([]string, len(modules))
		for i, m := range modules {
			names[i] = m.Name
		}
		r.Reserve(names...)
	}

	// Each goroutine writes only its own index.
	outcomes := make([]*model.ModuleOutcome, len(modules))

	var g errgroup.Group
	g.SetLimit(mp.concurrency)

	for i, module := range modules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = &model.ModuleOutcome{Module: module.Name, Error: err.Error()}
				return nil
			}

			outcome := mp.processModule(ctx, module)
			outcomes[i] = outcome
			if mp.onOutcome != nil {
				mp.onOutcome(outcome, i)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record failures in outcomes

	mp.logger.Info("module processing complete",
		"modules", len(modules),
		"elapsed", time.Since(startTime),
	)

	return outcomes, ctx.Err()
}

// processModule runs analysis and rendering for one module.
func (mp *ModuleProcessor) processModule(ctx context.Context, module *model.Module) *model.ModuleOutcome {
	outcome := &model.ModuleOutcome{Module: module.Name}

	result, err := mp.analyzer.Analyze(ctx, module)
	if err != nil {
		mp.logger.Warn("module analysis failed", "module", module.Name, "error", err)
		outcome.Error = fmt.Sprintf("analysis failed: %v", err)
		return outcome
	}
	outcome.Analysis = result

	path, err := mp.writer.Write(&report.ModuleReport{
		Module:      module,
		Analysis:    result,
		SourceURL:   mp.sourceURL,
		GeneratedAt: mp.now(),
	})
	if err != nil {
		mp.logger.Warn("module document failed", "module", module.Name, "error", err)
		outcome.Error = err.Error()
		return outcome
	}
	outcome.OutputPath = path

	mp.logger.Debug("module document written",
		"module", module.Name,
		"path", path,
		"analysis", result.Source,
	)
	return outcome
}
