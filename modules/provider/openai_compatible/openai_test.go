package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/provider"
	"github.com/parley-chat/parley/pkg/turn"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := &Provider{
		config: Config{
			BaseURL: srv.URL,
			APIKey:  "test-key",
			Model:   "test-model",
		},
		apiKey: "test-key",
		client: srv.Client(),
	}
	p.config.defaults()
	return p
}

func requestTurns() []turn.Turn {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []turn.Turn{
		turn.New("c", turn.RoleSystem, "be terse", at),
		turn.New("c", turn.RoleUser, "hello", at),
	}
}

func TestComplete_Success(t *testing.T) {
	var captured oaiRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(oaiResponse{
			Choices: []oaiChoice{{
				Message:      oaiMessage{Role: "assistant", Content: "hi"},
				FinishReason: "stop",
			}},
			Usage: oaiUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		})
	})

	resp, err := p.Complete(context.Background(), provider.CompletionRequest{Turns: requestTurns()})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hi" {
		t.Fatalf("content = %q", resp.Content)
	}
	if resp.FinishReason != provider.FinishReasonStop {
		t.Fatalf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Fatalf("usage = %+v", resp.Usage)
	}

	// System turns travel inline in the OpenAI wire format.
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("wire messages = %+v", captured.Messages)
	}
}

func TestComplete_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":"slow down"}`, provider.ErrRateLimit},
		{"server error", http.StatusInternalServerError, `boom`, provider.ErrProviderDown},
		{"bad gateway", http.StatusBadGateway, `bad`, provider.ErrProviderDown},
		{"auth", http.StatusUnauthorized, `nope`, provider.ErrAuth},
		{"context length", http.StatusBadRequest, `{"error":{"code":"context_length_exceeded"}}`, provider.ErrContextLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := p.Complete(context.Background(), provider.CompletionRequest{Turns: requestTurns()})
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("error = %v, want %v", err, tc.sentinel)
			}
		})
	}
}

func TestStream_EmitsChunksAndUsage(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"content":"hel"},"finish_reason":null}]}`,
			`data:{"choices":[{"delta":{"content":"lo"},"finish_reason":null}]}`,
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
			`data: [DONE]`,
		}
		for _, c := range chunks {
			_, _ = w.Write([]byte(c + "\n\n"))
		}
	})

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{Turns: requestTurns()})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var content string
	var usage *provider.TokenUsage
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		content += chunk.Content
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
	if content != "hello" {
		t.Fatalf("accumulated content = %q", content)
	}
	if usage == nil || usage.TotalTokens != 7 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestStream_InitialErrorReturnedDirectly(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Stream(context.Background(), provider.CompletionRequest{Turns: requestTurns()})
	if !errors.Is(err, provider.ErrProviderDown) {
		t.Fatalf("error = %v, want ErrProviderDown", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing base_url", func(c *Config) { c.BaseURL = "" }, true},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, true},
		{"missing key", func(c *Config) { c.APIKey = ""; c.APIKeyEnv = "" }, true},
		{"env key ok", func(c *Config) { c.APIKey = ""; c.APIKeyEnv = "SOME_KEY" }, false},
		{"missing model", func(c *Config) { c.Model = "" }, true},
		{"negative max_tokens", func(c *Config) { c.MaxTokens = -1 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{BaseURL: "https://api.example.com/v1", APIKey: "k", Model: "m"}
			cfg.defaults()
			tc.mutate(&cfg)
			err := cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
