package analysis

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAICompleter calls the OpenAI Chat Completions API.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAICompleter creates a completer from the settings.
func NewOpenAICompleter(settings Settings) *OpenAICompleter {
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
		model = DefaultOpenAIModel
	}

	return &OpenAICompleter{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: DefaultMaxOutputTokens,
	}
}

// Provider returns "openai".
func (c *OpenAICompleter) Provider() string {
	return ProviderOpenAI
}

// Complete sends a system and a user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ErrAnalysisUnavailable, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned no text", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
