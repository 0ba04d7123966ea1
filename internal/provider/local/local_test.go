package local

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

func serveJSON(t *testing.T, body string, captured *request) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestInvoke_OllamaChatShape(t *testing.T) {
	var capturedReq request
	server := serveJSON(t, `{"message":{"role":"assistant","content":"Hello from Ollama!"}}`, &capturedReq)
	defer server.Close()

	cfg := &provider.Config{Kind: provider.KindLocal, Model: "llama3.2", Endpoint: server.URL}
	got, err := New().Invoke(context.Background(), cfg, []provider.Message{{Role: "user", Content: "hi"}}, "Be concise.")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello from Ollama!" {
		t.Errorf("content = %q", got)
	}
	if capturedReq.Stream {
		t.Error("stream must be false")
	}
	if capturedReq.Model != "llama3.2" {
		t.Errorf("model = %q", capturedReq.Model)
	}
	if len(capturedReq.Messages) != 2 || capturedReq.Messages[0].Role != provider.RoleSystem {
		t.Errorf("messages = %+v", capturedReq.Messages)
	}
}

func TestInvoke_OpenAICompatibleShape(t *testing.T) {
	server := serveJSON(t, `{"choices":[{"message":{"role":"assistant","content":"Hello from LM Studio!"}}]}`, nil)
	defer server.Close()

	cfg := &provider.Config{Model: "m", Endpoint: server.URL}
	got, err := New().Invoke(context.Background(), cfg, nil, "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello from LM Studio!" {
		t.Errorf("content = %q", got)
	}
}

func TestInvoke_GenerateShape(t *testing.T) {
	server := serveJSON(t, `{"response":"Hello from generate!"}`, nil)
	defer server.Close()

	cfg := &provider.Config{Model: "m", Endpoint: server.URL}
	got, err := New().Invoke(context.Background(), cfg, nil, "")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != "Hello from generate!" {
		t.Errorf("content = %q", got)
	}
}

func TestInvoke_UnrecognizedShape(t *testing.T) {
	server := serveJSON(t, `{"output":"nope"}`, nil)
	defer server.Close()

	cfg := &provider.Config{Model: "m", Endpoint: server.URL}
	if _, err := New().Invoke(context.Background(), cfg, nil, ""); err == nil {
		t.Fatal("expected error for unrecognized shape")
	}
}

func TestInvoke_NoAuthHeader(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	cfg := &provider.Config{Model: "m", APIKey: "should-not-be-sent", Endpoint: server.URL}
	if _, err := New().Invoke(context.Background(), cfg, nil, ""); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestKind(t *testing.T) {
	if New().Kind() != provider.KindLocal {
		t.Errorf("Kind() = %s", New().Kind())
	}
}
