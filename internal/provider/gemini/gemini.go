package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// Adapter speaks the Gemini generateContent wire format: the API key as a
// query parameter, the model substituted into the endpoint template, the
// conversation flattened into labeled text parts, and the reply nested
// under candidates[0].content.parts[0].text.
type Adapter struct {
	client *http.Client
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type response struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func New() *Adapter {
	return &Adapter{client: &http.Client{}}
}

func (a *Adapter) Kind() provider.Kind { return provider.KindGemini }

func (a *Adapter) Invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	endpoint := strings.ReplaceAll(cfg.ResolveEndpoint(), "{model}", cfg.Model)
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint += sep + "key=" + url.QueryEscape(cfg.APIKey)

	parts := make([]part, 0, len(messages)+1)
	if systemPrompt != "" {
		parts = append(parts, part{Text: "System: " + systemPrompt})
	}
	for _, m := range messages {
		parts = append(parts, part{Text: m.Role + ": " + m.Content})
	}

	body := request{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: cfg.MaxTokens,
			Temperature:     cfg.Temperature,
		},
	}

	raw, err := provider.PostJSON(ctx, a.client, a.Kind(), endpoint, nil, body)
	if err != nil {
		return "", err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response contained no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
