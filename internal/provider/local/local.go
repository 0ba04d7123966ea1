package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// Adapter speaks to local LLM servers (Ollama, LM Studio). No auth. The
// response text is looked up under message.content, then
// choices[0].message.content, then a top-level response field, in that
// order, since local servers disagree on the reply shape.
type Adapter struct {
	client *http.Client
}

type request struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindLocal }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	body := request{
		Model:    cfg.Model,
		Messages: prependSystem(messages, systemPrompt),
		Stream:   false,
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), cfg.ResolveEndpoint(), nil, body)
	if err != nil {
		return "", err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode local llm response: %w", err)
	}

	// Ollama chat shape.
	if msg, ok := doc["message"].(map[string]any); ok {
		if text, ok := msg["content"].(string); ok {
			return text, nil
		}
	}
	// OpenAI-compatible shape (LM Studio).
	if choices, ok := doc["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if text, ok := msg["content"].(string); ok {
					return text, nil
				}
			}
		}
	}
	// Ollama generate shape.
	if text, ok := doc["response"].(string); ok {
		return text, nil
	}

	return "", fmt.Errorf("local llm response in unrecognized shape")
}

func prependSystem(messages []provider.Message, systemPrompt string) []provider.Message {
	if systemPrompt == "" {
		return messages
	}
	out := make([]provider.Message, 0, len(messages)+1)
	out = append(out, provider.Message{Role: provider.RoleSystem, Content: systemPrompt})
	return append(out, messages...)
}
