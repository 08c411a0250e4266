package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter calls the Claude Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter creates a completer from the settings.
func NewAnthropicCompleter(settings Settings) *AnthropicCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	if settings.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(settings.HTTPClient))
	}
	if settings.MaxRetries != 0 {
		opts = append(opts, option.WithMaxRetries(max(settings.MaxRetries, 0)))
	}

	model := settings.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: DefaultMaxOutputTokens,
	}
}

// Provider returns "anthropic".
func (c *AnthropicCompleter) Provider() string {
	return ProviderAnthropic
}

// Complete sends the prompt as a single user message.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %w", ErrAnalysisUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text", ErrMalformedResponse)
	}
	return text.String(), nil
}
