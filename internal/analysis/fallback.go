package analysis

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitescribe/internal/model"
)

// Fallback runs a primary analyzer and falls back to a secondary one when
// the primary fails. Report generation never stops because of analysis.
type Fallback struct {
	primary   Analyzer
	secondary Analyzer
	logger    *slog.Logger
}

// NewFallback wraps primary with secondary as fallback.
func NewFallback(primary, secondary Analyzer, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Name returns the primary analyzer's name.
func (f *Fallback) Name() string {
	return f.primary.Name()
}

// Analyze returns the primary result, or the secondary result with
// FallbackReason set. The error is non-nil only if both fail.
func (f *Fallback) Analyze(ctx context.Context, module *model.Module) (*model.AnalysisResult, error) {
	result, err := f.primary.Analyze(ctx, module)
	if err == nil {
		return result, nil
	}

	f.logger.Warn("analysis fell back",
		"module", module.Name,
		"analyzer", f.primary.Name(),
		"error", err,
	)

	result, fallbackErr := f.secondary.Analyze(ctx, module)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	result.FallbackReason = err.Error()
	return result, nil
}
