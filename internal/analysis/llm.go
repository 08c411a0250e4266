package analysis

import (
	"context"
	"fmt"

	"github.com/nao1215/sitescribe/internal/model"
)

// Completer sends one prompt to a language model and returns its text reply.
type Completer interface {
	// Provider returns the provider name, e.g. "anthropic".
	Provider() string

	// Complete returns the model's reply. Transport and API errors wrap
	// ErrAnalysisUnavailable.
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLM analyzes modules with a language model.
type LLM struct {
	completer Completer
	budget    PromptBudget
	counter   TokenCounter
}

// LLMOption configures an LLM analyzer.
type LLMOption func(*LLM)

// WithBudget sets the prompt budget. Zero fields keep their defaults.
func WithBudget(budget PromptBudget) LLMOption {
	return func(l *LLM) {
		l.budget = budget
	}
}

// WithTokenCounter sets the counter used for the token limit.
func WithTokenCounter(counter TokenCounter) LLMOption {
	return func(l *LLM) {
		if counter != nil {
			l.counter = counter
		}
	}
}

// NewLLM creates an LLM analyzer. By default tokens are counted with
// tiktoken's cl100k_base encoding.
func NewLLM(completer Completer, opts ...LLMOption) *LLM {
	l := &LLM{
		completer: completer,
		counter:   NewTiktokenCounter(""),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the provider name.
func (l *LLM) Name() string {
	return l.completer.Provider()
}

// Analyze sends the module to the language model and parses its reply.
func (l *LLM) Analyze(ctx context.Context, module *model.Module) (*model.AnalysisResult, error) {
	if len(module.SuccessfulPages()) == 0 {
		return nil, fmt.Errorf("%w: module %q has no fetched pages", ErrAnalysisUnavailable, module.Name)
	}

	prompt := BuildPrompt(module, l.budget, l.counter)
	reply, err := l.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := ParseResponse(reply)
	if err != nil {
		return nil, err
	}
	result.Source = l.completer.Provider()
	return result, nil
}
