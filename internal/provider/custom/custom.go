package custom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// Adapter posts to arbitrary OpenAI-adjacent backends. The request body
// comes from a caller-supplied JSON template with placeholder
// substitution, headers may carry an {API_KEY} placeholder, and the
// response text location is a pre-compiled dotted path. Without a path
// the adapter probes the common shapes before giving up and returning
// the raw body.
type Adapter struct {
	client *http.Client
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindCustom }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	if cfg.Endpoint == "" {
		return "", fmt.Errorf("custom configuration requires an endpoint")
	}

	header := http.Header{}
	for k, v := range cfg.CustomHeaders {
		header.Set(k, strings.ReplaceAll(v, "{API_KEY}", cfg.APIKey))
	}

	body, err := buildBody(cfg, messages, systemPrompt)
	if err != nil {
		return "", err
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), cfg.Endpoint, header, body)
	if err != nil {
		return "", err
	}
	return extractText(cfg, raw)
}

func buildBody(cfg *provider.Config, messages []provider.Message, systemPrompt string) (any, error) {
	if cfg.RequestTemplate == "" {
		return map[string]any{
			"messages":   messages,
			"system":     systemPrompt,
			"max_tokens": cfg.MaxTokens,
		}, nil
	}

	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages for template: %w", err)
	}

	rendered := cfg.RequestTemplate
	rendered = strings.ReplaceAll(rendered, "{MESSAGES}", string(msgJSON))
	rendered = strings.ReplaceAll(rendered, "{SYSTEM_PROMPT}", jsonEscape(systemPrompt))
	rendered = strings.ReplaceAll(rendered, "{MAX_TOKENS}", strconv.Itoa(cfg.MaxTokens))
	rendered = strings.ReplaceAll(rendered, "{MODEL}", jsonEscape(cfg.Model))

	var body any
	if err := json.Unmarshal([]byte(rendered), &body); err != nil {
		return nil, fmt.Errorf("request template is not valid JSON after substitution: %w", err)
	}
	return body, nil
}

// jsonEscape renders a value safe for insertion inside a quoted template
// placeholder.
func jsonEscape(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted[1 : len(quoted)-1])
}

func extractText(cfg *provider.Config, raw []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode custom response: %w", err)
	}

	if len(cfg.ResponsePath) > 0 {
		text, err := cfg.ResponsePath.EvalString(doc)
		if err != nil {
			return "", fmt.Errorf("response path %s: %w", cfg.ResponsePath, err)
		}
		return text, nil
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return string(raw), nil
	}

	// Anthropic-style content array.
	if blocks, ok := obj["content"].([]any); ok && len(blocks) > 0 {
		if block, ok := blocks[0].(map[string]any); ok {
			if text, ok := block["text"].(string); ok {
				return text, nil
			}
		}
	}
	// OpenAI-style choices array.
	if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if text, ok := msg["content"].(string); ok {
					return text, nil
				}
			}
		}
	}
	// Ollama-style response field.
	if text, ok := obj["response"].(string); ok {
		return text, nil
	}

	return string(raw), nil
}
