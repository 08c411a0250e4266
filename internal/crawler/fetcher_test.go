package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/ratelimit"
)

func newTestFetcher(t *testing.T, client *http.Client, opts ...FetcherOption) (*HTTPFetcher, *ratelimit.ManualClock) {
	t.Helper()
	clock := ratelimit.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := ratelimit.New(500*time.Millisecond, ratelimit.WithClock(clock))
	opts = append([]FetcherOption{WithLimiter(limiter)}, opts...)
	return NewHTTPFetcher(client, opts...), clock
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("fetches HTML and pauses afterwards", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body>Hello</body></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		fetcher, clock := newTestFetcher(t, server.Client())
		resp, err := fetcher.Fetch(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(resp.Body), "Hello") {
			t.Errorf("expected body to contain Hello, got %q", resp.Body)
		}
		if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 500*time.Millisecond {
			t.Errorf("expected one 500ms pause, got %v", sleeps)
		}
	})

	t.Run("sends user agent and extra headers", func(t *testing.T) {
		t.Parallel()

		headers := make(chan http.Header, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		fetcher, _ := newTestFetcher(t, server.Client(),
			WithUserAgent("test-agent"),
			WithHeaders(map[string]string{"Accept-Language": "ja"}),
		)
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := <-headers
		gotUA, gotLang := got.Get("User-Agent"), got.Get("Accept-Language")
		if gotUA != "test-agent" {
			t.Errorf("expected User-Agent test-agent, got %q", gotUA)
		}
		if gotLang != "ja" {
			t.Errorf("expected Accept-Language ja, got %q", gotLang)
		}
	})

	t.Run("limits body size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(strings.Repeat("x", 1000))) //nolint:errcheck
		}))
		defer server.Close()

		fetcher, _ := newTestFetcher(t, server.Client(), WithMaxBodySize(100))
		resp, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 100 {
			t.Errorf("expected 100 bytes, got %d", len(resp.Body))
		}
	})

	t.Run("classifies failures", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name        string
			status      int
			contentType string
			wantKind    model.FailureKind
			wantErr     error
		}{
			{"not found is permanent", http.StatusNotFound, "text/html", model.FailurePermanent, ErrHTTPStatus},
			{"forbidden is permanent", http.StatusForbidden, "text/html", model.FailurePermanent, ErrHTTPStatus},
			{"server error is transient", http.StatusServiceUnavailable, "text/html", model.FailureTransient, ErrHTTPStatus},
			{"rate limited is transient", http.StatusTooManyRequests, "text/html", model.FailureTransient, ErrHTTPStatus},
			{"json is permanent", http.StatusOK, "application/json", model.FailurePermanent, ErrNonHTML},
			{"pdf is permanent", http.StatusOK, "application/pdf", model.FailurePermanent, ErrNonHTML},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", tt.contentType)
					w.WriteHeader(tt.status)
				}))
				defer server.Close()

				fetcher, clock := newTestFetcher(t, server.Client())
				_, err := fetcher.Fetch(context.Background(), server.URL)

				var fetchErr *FetchError
				if !errors.As(err, &fetchErr) {
					t.Fatalf("expected *FetchError, got %v", err)
				}
				if fetchErr.Failure.Kind != tt.wantKind {
					t.Errorf("expected kind %s, got %s", tt.wantKind, fetchErr.Failure.Kind)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if len(clock.Sleeps()) != 1 {
					t.Errorf("expected the politeness pause after a failure, got %v", clock.Sleeps())
				}
			})
		}
	})

	t.Run("timeout is transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		client := server.Client()
		client.Timeout = 50 * time.Millisecond

		fetcher, _ := newTestFetcher(t, client)
		_, err := fetcher.Fetch(context.Background(), server.URL)

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if !fetchErr.Transient() {
			t.Errorf("expected transient failure, got %s", fetchErr.Failure.Kind)
		}
		if fetchErr.Failure.Reason != "timeout" {
			t.Errorf("expected reason timeout, got %q", fetchErr.Failure.Reason)
		}
	})

	t.Run("connection refused is transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		fetcher, _ := newTestFetcher(t, nil)
		_, err := fetcher.Fetch(context.Background(), addr)

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if !fetchErr.Transient() {
			t.Errorf("expected transient failure, got %s", fetchErr.Failure.Kind)
		}
	})

	t.Run("redirect to another host is permanent", func(t *testing.T) {
		t.Parallel()

		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
		}))
		defer other.Close()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, other.URL+"/landing", http.StatusFound)
		}))
		defer server.Close()

		fetcher, _ := newTestFetcher(t, nil)
		_, err := fetcher.Fetch(context.Background(), server.URL+"/start")
		if !errors.Is(err, ErrOffHostRedirect) {
			t.Errorf("expected ErrOffHostRedirect, got %v", err)
		}
	})

	t.Run("same host redirect reports final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher, _ := newTestFetcher(t, server.Client())
		resp, err := fetcher.Fetch(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.URL != server.URL+"/new/" {
			t.Errorf("expected final URL %s/new/, got %s", server.URL, resp.URL)
		}
		if resp.RequestURL != server.URL+"/old" {
			t.Errorf("expected request URL %s/old, got %s", server.URL, resp.RequestURL)
		}
	})

	t.Run("cancelled context is reported as cancelled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher, _ := newTestFetcher(t, server.Client())
		_, err := fetcher.Fetch(ctx, server.URL)

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fetchErr.Failure.Kind != model.FailureCancelled {
			t.Errorf("expected cancelled, got %s", fetchErr.Failure.Kind)
		}
	})
}

func TestIsHTMLContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"", true},
		{"application/json", false},
		{"image/png", false},
		{"text/plain", false},
	}

	for _, tt := range tests {
		if got := isHTMLContentType(tt.in); got != tt.want {
			t.Errorf("isHTMLContentType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
