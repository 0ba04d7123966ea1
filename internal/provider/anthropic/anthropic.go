package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

const defaultAPIVersion = "2023-06-01"

// Adapter speaks the Anthropic messages wire format: x-api-key auth, a
// version header, the system prompt as a top-level field, and the reply
// in content[0].text.
type Adapter struct {
	client *http.Client
}

type request struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []provider.Message `json:"messages"`
}

type response struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindAnthropic }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}

	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", version)

	body := request{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    systemPrompt,
		Messages:  messages,
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), cfg.ResolveEndpoint(), header, body)
	if err != nil {
		return "", err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic response contained no content")
	}
	return resp.Content[0].Text, nil
}
