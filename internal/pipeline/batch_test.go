package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitescribe/internal/analysis"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/report"
)

// stubAnalyzer returns a fixed result, or an error for listed modules.
type stubAnalyzer struct {
	failFor map[string]bool
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (a *stubAnalyzer) Name() string { return "stub" }

func (a *stubAnalyzer) Analyze(_ context.Context, module *model.Module) (*model.AnalysisResult, error) {
	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		peak := a.peak.Load()
		if n <= peak || a.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	if a.failFor[module.Name] {
		return nil, fmt.Errorf("%w: no pages", analysis.ErrAnalysisUnavailable)
	}
	return &model.AnalysisResult{
		Summary:     "About " + module.Name,
		Projects:    []string{"a", "b", "c"},
		KeyConcepts: []string{"x"},
		Source:      model.SourceBasic,
	}, nil
}

// memoryWriter records documents instead of writing files.
type memoryWriter struct {
	mu      sync.Mutex
	reports []*report.ModuleReport
	failFor map[string]bool
}

func (w *memoryWriter) Write(r *report.ModuleReport) (string, error) {
	if w.failFor[r.Module.Name] {
		return "", errors.New("disk full")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, r)
	return "/out/" + report.FileName(r.Module.Name, ".md"), nil
}

func testModules(names ...string) []*model.Module {
	modules := make([]*model.Module, len(names))
	for i, name := range names {
		modules[i] = &model.Module{
			Name:  name,
			Key:   name,
			Pages: []*model.Page{{URL: "https://example.com/" + name, Title: name, Status: model.StatusOK}},
		}
	}
	return modules
}

// TestModuleProcessorNew tests the ModuleProcessor constructor.
func TestModuleProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		mp := NewModuleProcessor(&stubAnalyzer{}, &memoryWriter{})

		if mp.concurrency != DefaultModuleConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultModuleConcurrency, mp.concurrency)
		}
		if mp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		mp := NewModuleProcessor(&stubAnalyzer{}, &memoryWriter{}, WithConcurrency(0))

		if mp.concurrency != DefaultModuleConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultModuleConcurrency, mp.concurrency)
		}
	})
}

// TestModuleProcessorProcess tests module processing.
func TestModuleProcessorProcess(t *testing.T) {
	t.Parallel()

	t.Run("colliding file names follow module order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writer := report.NewDirWriter(dir, report.NewMarkdownRenderer())
		mp := NewModuleProcessor(&stubAnalyzer{delay: 5 * time.Millisecond}, writer, WithConcurrency(3))

		outcomes, err := mp.Process(context.Background(), testModules("a:b", "a/b", "A|B"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"a-b_analysis.md", "a-b-2_analysis.md", "a-b-3_analysis.md"}
		for i, o := range outcomes {
			if got := filepath.Base(o.OutputPath); got != want[i] {
				t.Errorf("%s: expected %s, got %s", o.Module, want[i], got)
			}
		}
	})

	t.Run("processes all modules in order", func(t *testing.T) {
		t.Parallel()

		writer := &memoryWriter{}
		mp := NewModuleProcessor(&stubAnalyzer{}, writer,
			WithConcurrency(3),
			WithSourceURL("https://example.com"),
		)

		modules := testModules("Home", "Docs", "Blog", "API")
		outcomes, err := mp.Process(context.Background(), modules)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(outcomes) != len(modules) {
			t.Fatalf("expected %d outcomes, got %d", len(modules), len(outcomes))
		}
		for i, o := range outcomes {
			if o.Module != modules[i].Name {
				t.Errorf("outcome %d: expected %s, got %s", i, modules[i].Name, o.Module)
			}
			if !o.Succeeded() {
				t.Errorf("expected %s to succeed, got error %q", o.Module, o.Error)
			}
		}
		if len(writer.reports) != 4 {
			t.Errorf("expected 4 documents, got %d", len(writer.reports))
		}
		for _, r := range writer.reports {
			if r.SourceURL != "https://example.com" {
				t.Errorf("expected source URL in report, got %q", r.SourceURL)
			}
			if r.GeneratedAt.IsZero() {
				t.Error("expected generation time")
			}
		}
	})

	t.Run("isolates failures per module", func(t *testing.T) {
		t.Parallel()

		analyzer := &stubAnalyzer{failFor: map[string]bool{"Docs": true}}
		writer := &memoryWriter{failFor: map[string]bool{"Blog": true}}
		mp := NewModuleProcessor(analyzer, writer)

		outcomes, err := mp.Process(context.Background(), testModules("Home", "Docs", "Blog", "API"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !outcomes[0].Succeeded() || !outcomes[3].Succeeded() {
			t.Error("expected unaffected modules to succeed")
		}
		if outcomes[1].Succeeded() || outcomes[1].Analysis != nil {
			t.Errorf("expected analysis failure for Docs, got %+v", outcomes[1])
		}
		if outcomes[2].Error != "disk full" {
			t.Errorf("expected write failure for Blog, got %q", outcomes[2].Error)
		}
		if outcomes[2].Analysis == nil {
			t.Error("expected analysis to be kept when writing fails")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		analyzer := &stubAnalyzer{delay: 20 * time.Millisecond}
		mp := NewModuleProcessor(analyzer, &memoryWriter{}, WithConcurrency(2))

		if _, err := mp.Process(context.Background(), testModules("a", "b", "c", "d", "e", "f")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak := analyzer.peak.Load(); peak > 2 {
			t.Errorf("expected at most 2 concurrent analyses, got %d", peak)
		}
	})

	t.Run("calls outcome callback for every module", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[int]string)
		mp := NewModuleProcessor(&stubAnalyzer{}, &memoryWriter{},
			WithOutcomeCallback(func(o *model.ModuleOutcome, i int) {
				mu.Lock()
				defer mu.Unlock()
				seen[i] = o.Module
			}),
		)

		if _, err := mp.Process(context.Background(), testModules("Home", "Docs")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[0] != "Home" || seen[1] != "Docs" {
			t.Errorf("unexpected callbacks: %v", seen)
		}
	})

	t.Run("marks modules cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		writer := &memoryWriter{}
		mp := NewModuleProcessor(&stubAnalyzer{}, writer)
		outcomes, err := mp.Process(ctx, testModules("Home", "Docs"))

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for _, o := range outcomes {
			if o.Succeeded() || o.Error == "" {
				t.Errorf("expected cancelled outcome, got %+v", o)
			}
		}
		if len(writer.reports) != 0 {
			t.Errorf("expected no documents, got %d", len(writer.reports))
		}
	})

	t.Run("handles no modules", func(t *testing.T) {
		t.Parallel()

		mp := NewModuleProcessor(&stubAnalyzer{}, &memoryWriter{})
		outcomes, err := mp.Process(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(outcomes) != 0 {
			t.Errorf("expected no outcomes, got %d", len(outcomes))
		}
	})
}
