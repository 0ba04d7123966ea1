package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// Adapter speaks the OpenAI chat-completions wire format: bearer auth,
// the system prompt injected as a leading system message, and the reply
// in choices[0].message.content.
type Adapter struct {
	client *http.Client
}

type request struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type response struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message provider.Message `json:"message"`
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindOpenAI }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	body := request{
		Model:       cfg.Model,
		Messages:    PrependSystem(messages, systemPrompt),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), cfg.ResolveEndpoint(), header, body)
	if err != nil {
		return "", err
	}
	return ExtractChoice(a.Kind(), raw)
}

// PrependSystem injects the system prompt as a leading system-role
// message. Shared with the Azure adapter, which posts the same shape.
func PrependSystem(messages []provider.Message, systemPrompt string) []provider.Message {
	if systemPrompt == "" {
		return messages
	}
	out := make([]provider.Message, 0, len(messages)+1)
	out = append(out, provider.Message{Role: provider.RoleSystem, Content: systemPrompt})
	return append(out, messages...)
}

// ExtractChoice pulls choices[0].message.content out of a chat-completions
// response body.
func ExtractChoice(kind provider.Kind, raw []byte) (string, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode %s response: %w", kind, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response contained no choices", kind)
	}
	return resp.Choices[0].Message.Content, nil
}
