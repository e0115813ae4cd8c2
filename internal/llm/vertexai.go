package llm

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// VertexAIClient wraps the Vertex AI Gemini API
type VertexAIClient struct {
	client    *genai.Client
	modelName string
}

// NewVertexAIClient creates a new Vertex AI client
func NewVertexAIClient(ctx context.Context, projectID, location, model string) (*VertexAIClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertex ai project is required")
	}
	if location == "" {
		location = "us-central1"
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &VertexAIClient{client: client, modelName: model}, nil
}

// GenerateContent sends a prompt to the model and returns the response
func (v *VertexAIClient) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	model := v.client.GenerativeModel(v.modelName)
	model.SetTemperature(0)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned")
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	return joinText(parts)
}

// Close closes the Vertex AI client
func (v *VertexAIClient) Close() error {
	return v.client.Close()
}
