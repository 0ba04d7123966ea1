package azure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/internal/provider/openai"
)

// Adapter speaks the Azure-hosted chat-completions variant: api-key
// header auth, posted to the caller-supplied deployment URL, and no
// model field in the body (the deployment pins the model).
type Adapter struct {
	client *http.Client
}

type request struct {
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindAzureOpenAI }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	if cfg.Endpoint == "" {
		return "", fmt.Errorf("azure-openai configuration requires an endpoint")
	}

	header := http.Header{}
	header.Set("api-key", cfg.APIKey)

	body := request{
		Messages:    openai.PrependSystem(messages, systemPrompt),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), cfg.Endpoint, header, body)
	if err != nil {
		return "", err
	}
	return openai.ExtractChoice(a.Kind(), raw)
}
