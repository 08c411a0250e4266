package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/sitescribe/internal/model"
)

const validReply = `{"summary":"Covers installation.","buildable_projects":["CLI","Plugin","Dashboard"],"key_concepts":["install","config"]}`

// stubCompleter returns a fixed reply or error.
type stubCompleter struct {
	reply  string
	err    error
	prompt Prompt
	calls  int
}

func (s *stubCompleter) Provider() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, prompt Prompt) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.reply, s.err
}

func docsModule() *model.Module {
	return &model.Module{
		Name: "Docs",
		Pages: []*model.Page{
			page("https://example.com/docs/install", "Install", "install the tool with the installer"),
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLLMAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("parses the model reply", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{reply: "```json\n" + validReply + "\n```"}
		result, err := NewLLM(stub, WithTokenCounter(HeuristicCounter{})).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Summary != "Covers installation." {
			t.Errorf("unexpected summary %q", result.Summary)
		}
		if result.Source != "stub" {
			t.Errorf("expected source stub, got %s", result.Source)
		}
		if !strings.Contains(stub.prompt.User, "Module: Docs") {
			t.Errorf("expected module in prompt, got %q", stub.prompt.User)
		}
	})

	t.Run("module without fetched pages is unavailable", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{reply: validReply}
		module := &model.Module{Name: "Broken", Pages: []*model.Page{
			model.NewFailedPage("https://example.com/broken", model.FetchFailure{Kind: model.FailureTransient}),
		}}
		_, err := NewLLM(stub).Analyze(context.Background(), module)
		if !errors.Is(err, ErrAnalysisUnavailable) {
			t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
		}
		if stub.calls != 0 {
			t.Errorf("expected no model call, got %d", stub.calls)
		}
	})

	t.Run("malformed reply is reported", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{reply: "Sorry, no JSON today."}
		_, err := NewLLM(stub, WithTokenCounter(HeuristicCounter{})).Analyze(context.Background(), docsModule())
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})
}

func TestFallback(t *testing.T) {
	t.Parallel()

	t.Run("uses primary result", func(t *testing.T) {
		t.Parallel()

		llm := NewLLM(&stubCompleter{reply: validReply}, WithTokenCounter(HeuristicCounter{}))
		result, err := NewFallback(llm, NewBasic(), discardLogger()).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FellBack() {
			t.Errorf("expected no fallback, got reason %q", result.FallbackReason)
		}
	})

	t.Run("falls back on unavailable provider", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{err: errors.Join(ErrAnalysisUnavailable, errors.New("quota exceeded"))}
		llm := NewLLM(stub, WithTokenCounter(HeuristicCounter{}))

		result, err := NewFallback(llm, NewBasic(), discardLogger()).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Source != model.SourceBasic {
			t.Errorf("expected basic source, got %s", result.Source)
		}
		if !strings.Contains(result.FallbackReason, "quota exceeded") {
			t.Errorf("expected reason to mention quota, got %q", result.FallbackReason)
		}

		basic, err := NewBasic().Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Summary != basic.Summary {
			t.Errorf("expected the basic summary, got %q", result.Summary)
		}
	})

	t.Run("falls back on malformed reply", func(t *testing.T) {
		t.Parallel()

		llm := NewLLM(&stubCompleter{reply: `{"summary":"only"}`}, WithTokenCounter(HeuristicCounter{}))
		result, err := NewFallback(llm, NewBasic(), nil).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.FellBack() {
			t.Error("expected fallback")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("no key selects basic", func(t *testing.T) {
		t.Parallel()

		a, err := New(Settings{Provider: ProviderAnthropic})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := a.(*Basic); !ok {
			t.Errorf("expected *Basic, got %T", a)
		}
	})

	t.Run("key selects provider with fallback", func(t *testing.T) {
		t.Parallel()

		for _, provider := range []string{"", ProviderAnthropic, ProviderOpenAI} {
			a, err := New(Settings{Provider: provider, APIKey: "sk-test"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := a.(*Fallback); !ok {
				t.Errorf("expected *Fallback for %q, got %T", provider, a)
			}
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()

		if _, err := New(Settings{Provider: "gemini", APIKey: "k"}); !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})
}

// anthropicServer answers every request with a Messages API reply.
func anthropicServer(t *testing.T, status int, text string, requests chan<- map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // checked by the caller
			requests <- body
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)) //nolint:errcheck
			return
		}
		//nolint:errcheck // test handler
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         DefaultAnthropicModel,
			"content":       []map[string]any{{"type": "text", "text": text}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
}

// openAIServer answers every request with a Chat Completions reply.
func openAIServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`)) //nolint:errcheck
			return
		}
		//nolint:errcheck // test handler
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   DefaultOpenAIModel,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
}

func TestAnthropicCompleter(t *testing.T) {
	t.Parallel()

	t.Run("returns text and sends the model", func(t *testing.T) {
		t.Parallel()

		requests := make(chan map[string]any, 1)
		server := anthropicServer(t, http.StatusOK, validReply, requests)
		defer server.Close()

		completer := NewAnthropicCompleter(Settings{APIKey: "sk-ant-test", BaseURL: server.URL, MaxRetries: -1})
		result, err := NewLLM(completer, WithTokenCounter(HeuristicCounter{})).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Source != ProviderAnthropic {
			t.Errorf("expected source anthropic, got %s", result.Source)
		}
		if len(result.Projects) != 3 {
			t.Errorf("expected 3 projects, got %v", result.Projects)
		}

		body := <-requests
		if body["model"] != DefaultAnthropicModel {
			t.Errorf("expected model %s, got %v", DefaultAnthropicModel, body["model"])
		}
		if body["max_tokens"] != float64(DefaultMaxOutputTokens) {
			t.Errorf("expected max_tokens %d, got %v", DefaultMaxOutputTokens, body["max_tokens"])
		}
	})

	t.Run("API error is unavailable", func(t *testing.T) {
		t.Parallel()

		server := anthropicServer(t, http.StatusServiceUnavailable, "", nil)
		defer server.Close()

		completer := NewAnthropicCompleter(Settings{APIKey: "sk-ant-test", BaseURL: server.URL, MaxRetries: -1})
		_, err := completer.Complete(context.Background(), Prompt{User: "hi"})
		if !errors.Is(err, ErrAnalysisUnavailable) {
			t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
		}
	})

	t.Run("end to end fallback", func(t *testing.T) {
		t.Parallel()

		server := anthropicServer(t, http.StatusTooManyRequests, "", nil)
		defer server.Close()

		analyzer, err := New(Settings{
			Provider:     ProviderAnthropic,
			APIKey:       "sk-ant-test",
			BaseURL:      server.URL,
			MaxRetries:   -1,
			TokenCounter: HeuristicCounter{},
			Logger:       discardLogger(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := analyzer.Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.FellBack() || result.Source != model.SourceBasic {
			t.Errorf("expected basic fallback, got %+v", result)
		}
	})
}

func TestOpenAICompleter(t *testing.T) {
	t.Parallel()

	t.Run("returns message content", func(t *testing.T) {
		t.Parallel()

		server := openAIServer(t, http.StatusOK, validReply)
		defer server.Close()

		completer := NewOpenAICompleter(Settings{APIKey: "sk-test", BaseURL: server.URL, MaxRetries: -1})
		result, err := NewLLM(completer, WithTokenCounter(HeuristicCounter{})).Analyze(context.Background(), docsModule())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Source != ProviderOpenAI {
			t.Errorf("expected source openai, got %s", result.Source)
		}
	})

	t.Run("empty content is malformed", func(t *testing.T) {
		t.Parallel()

		server := openAIServer(t, http.StatusOK, "")
		defer server.Close()

		completer := NewOpenAICompleter(Settings{APIKey: "sk-test", BaseURL: server.URL, MaxRetries: -1})
		if _, err := completer.Complete(context.Background(), Prompt{User: "hi"}); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("API error is unavailable", func(t *testing.T) {
		t.Parallel()

		server := openAIServer(t, http.StatusUnauthorized, "")
		defer server.Close()

		completer := NewOpenAICompleter(Settings{APIKey: "sk-test", BaseURL: server.URL, MaxRetries: -1})
		if _, err := completer.Complete(context.Background(), Prompt{User: "hi"}); !errors.Is(err, ErrAnalysisUnavailable) {
			t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
		}
	})
}
