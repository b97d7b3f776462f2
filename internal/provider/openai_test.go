package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlasos/atlas/internal/config"
)

func TestOpenAIProviderChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "test-model" {
			t.Errorf("model = %v", body["model"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": "hello"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "test-model")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProviderChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "m")
	if _, err := p.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestOpenAIProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
			"usage": map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "")
	resp, err := p.Embed(context.Background(), &EmbeddingRequest{Input: "text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Vector) != 3 {
		t.Errorf("vector length = %d, want 3", len(resp.Vector))
	}
}

func TestParseModelString(t *testing.T) {
	cases := []struct {
		in          string
		prov, model string
	}{
		{"openrouter/anthropic/claude-sonnet-4-5", "openrouter", "anthropic/claude-sonnet-4-5"},
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"gpt-4o", "", "gpt-4o"},
	}
	for _, tc := range cases {
		prov, model := ParseModelString(tc.in)
		if prov != tc.prov || model != tc.model {
			t.Errorf("ParseModelString(%q) = (%q, %q), want (%q, %q)", tc.in, prov, model, tc.prov, tc.model)
		}
	}
}

func TestResolvePrefersExplicitProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Name = "groq/llama-3.3-70b"
	cfg.Providers.Groq.APIKey = "gk"
	cfg.Providers.OpenAI.APIKey = "ok"

	prov, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := prov.DefaultModel(); got != "llama-3.3-70b" {
		t.Errorf("model = %q", got)
	}
}

func TestResolveVendorPrefixViaOpenRouter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Name = "anthropic/claude-sonnet-4-5"
	cfg.Providers.OpenRouter.APIKey = "ork"

	prov, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// OpenRouter keeps the full vendor path as the model name.
	if got := prov.DefaultModel(); got != "anthropic/claude-sonnet-4-5" {
		t.Errorf("model = %q", got)
	}
}

func TestResolveNoKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Name = "gpt-4o"
	if _, err := Resolve(cfg); err == nil {
		t.Fatal("expected error with no API keys")
	}
}
