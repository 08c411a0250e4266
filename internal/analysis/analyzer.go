package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

var (
	// ErrAnalysisUnavailable is returned when the language model cannot be
	// reached or refuses the request.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")

	// ErrMalformedResponse is returned when the language model reply does
	// not contain a usable analysis.
	ErrMalformedResponse = errors.New("malformed analysis response")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown analysis provider")
)

// Analyzer produces an AnalysisResult for a module.
type Analyzer interface {
	// Name identifies the analyzer in logs and reports.
	Name() string

	// Analyze summarizes one module.
	Analyze(ctx context.Context, module *model.Module) (*model.AnalysisResult, error)
}

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// DefaultMaxOutputTokens caps the length of a model reply.
const DefaultMaxOutputTokens = 2000

// Settings selects and configures an analyzer.
type Settings struct {
	// Provider is "anthropic" (default) or "openai".
	Provider string

	// APIKey is the provider credential. Empty selects the basic analyzer.
	APIKey string

	// Model overrides the provider default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// HTTPClient is used for provider requests when set.
	HTTPClient *http.Client

	// MaxRetries overrides the SDK retry count when positive. Negative
	// disables retries, zero keeps the SDK default.
	MaxRetries int

	// Budget bounds the prompt. Zero values use the defaults.
	Budget PromptBudget

	// TokenCounter replaces the tiktoken counter when set.
	TokenCounter TokenCounter

	// Logger receives fallback warnings.
	Logger *slog.Logger
}

// New returns the analyzer for the given settings: the basic analyzer when
// no credential is configured, otherwise the provider-backed analyzer
// wrapped so that any failure falls back to the basic one.
func New(settings Settings) (Analyzer, error) {
	basic := NewBasic()
	if strings.TrimSpace(settings.APIKey) == "" {
		return basic, nil
	}

	var completer Completer
	switch strings.ToLower(settings.Provider) {
	case "", ProviderAnthropic:
		completer = NewAnthropicCompleter(settings)
	case ProviderOpenAI:
		completer = NewOpenAICompleter(settings)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, settings.Provider)
	}

	counter := settings.TokenCounter
	if counter == nil {
		counter = NewTiktokenCounter(settings.Model)
	}
	llm := NewLLM(completer, WithBudget(settings.Budget), WithTokenCounter(counter))
	return NewFallback(llm, basic, settings.Logger), nil
}
