package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient calls the Gemini API with an API key.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// GeminiOption customises the underlying genai client config.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiHTTP points the client at a different endpoint.
func WithGeminiHTTP(baseURL string, client *http.Client) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = baseURL
		cfg.HTTPClient = client
	}
}

// NewGeminiClient creates a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	return &GeminiClient{client: client, modelName: model}, nil
}

// GenerateContent sends the prompt with the system instruction at temperature 0.
func (g *GeminiClient) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var parts []string
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				parts = append(parts, part.Text)
			}
		}
		break
	}

	return joinText(parts)
}
