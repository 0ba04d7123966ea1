package custom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/pkg/jsonpath"
)

func TestInvoke_DefaultBodyAndHeaderSubstitution(t *testing.T) {
	var captured map[string]any
	var auth, extra string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		extra = r.Header.Get("X-Org")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		_, _ = w.Write([]byte(`{"response":"Hello from custom!"}`))
	}))
	defer server.Close()

	cfg := &provider.Config{
		Kind:      provider.KindCustom,
		APIKey:    "secret-123",
		Model:     "internal-model",
		MaxTokens: 128,
		Endpoint:  server.URL,
		CustomHeaders: map[string]string{
			"Authorization": "Bearer {API_KEY}",
			"X-Org":         "grc-platform",
		},
	}

	got, err := New().Invoke(context.Background(), cfg, []provider.Message{{Role: "user", Content: "hi"}}, "sys")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello from custom!" {
		t.Errorf("content = %q", got)
	}
	if auth != "Bearer secret-123" {
		t.Errorf("Authorization = %q", auth)
	}
	if extra != "grc-platform" {
		t.Errorf("X-Org = %q", extra)
	}
	if captured["system"] != "sys" {
		t.Errorf("system = %v", captured["system"])
	}
	if captured["max_tokens"] != float64(128) {
		t.Errorf("max_tokens = %v", captured["max_tokens"])
	}
}

func TestInvoke_RequestTemplate(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		_, _ = w.Write([]byte(`{"data":{"outputs":[{"text":"templated reply"}]}}`))
	}))
	defer server.Close()

	path, err := jsonpath.Parse("data.outputs.0.text")
	if err != nil {
		t.Fatalf("parse path: %v", err)
	}
	cfg := &provider.Config{
		Kind:      provider.KindCustom,
		APIKey:    "k",
		Model:     "my-model",
		MaxTokens: 64,
		Endpoint:  server.URL,
		RequestTemplate: `{
			"model": "{MODEL}",
			"input": {"prompt": "{SYSTEM_PROMPT}", "turns": {MESSAGES}},
			"limit": {MAX_TOKENS}
		}`,
		ResponsePath: path,
	}

	got, err := New().Invoke(context.Background(), cfg, []provider.Message{{Role: "user", Content: "hi"}}, `multi
line "quoted" prompt`)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "templated reply" {
		t.Errorf("content = %q", got)
	}
	if captured["model"] != "my-model" {
		t.Errorf("model = %v", captured["model"])
	}
	if captured["limit"] != float64(64) {
		t.Errorf("limit = %v", captured["limit"])
	}
	input, _ := captured["input"].(map[string]any)
	if input == nil {
		t.Fatalf("input missing: %v", captured)
	}
	if !strings.Contains(input["prompt"].(string), `"quoted"`) {
		t.Errorf("prompt not escaped round trip: %q", input["prompt"])
	}
	turns, _ := input["turns"].([]any)
	if len(turns) != 1 {
		t.Errorf("turns = %v", input["turns"])
	}
}

func TestInvoke_ResponsePathMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	path, _ := jsonpath.Parse("data.text")
	cfg := &provider.Config{Endpoint: server.URL, ResponsePath: path}
	if _, err := New().Invoke(context.Background(), cfg, nil, ""); err == nil {
		t.Fatal("expected error when the configured path is absent")
	}
}

func TestInvoke_ShapeProbing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"content array", `{"content":[{"type":"text","text":"from content"}]}`, "from content"},
		{"choices array", `{"choices":[{"message":{"content":"from choices"}}]}`, "from choices"},
		{"response field", `{"response":"from response"}`, "from response"},
		{"raw fallback", `{"unknown":"shape"}`, `{"unknown":"shape"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := &provider.Config{Endpoint: server.URL}
			got, err := New().Invoke(context.Background(), cfg, nil, "")
			if err != nil {
				t.Fatalf("Invoke failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvoke_RequiresEndpoint(t *testing.T) {
	cfg := &provider.Config{Kind: provider.KindCustom}
	if _, err := New().Invoke(context.Background(), cfg, nil, ""); err == nil {
		t.Fatal("expected endpoint error")
	}
}

func TestInvoke_BadTemplate(t *testing.T) {
	cfg := &provider.Config{
		Endpoint:        "http://localhost:1",
		RequestTemplate: `{"broken": {MAX_TOKENS`,
	}
	if _, err := New().Invoke(context.Background(), cfg, nil, ""); err == nil {
		t.Fatal("expected template error")
	}
}

func TestKind(t *testing.T) {
	if New().Kind() != provider.KindCustom {
		t.Errorf("Kind() = %s", New().Kind())
	}
}
