package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// Groq included.
type OpenAIClient struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIClient creates a chat completions client. An empty baseURL
// keeps the library default.
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		return nil, errors.New("openai model is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), modelName: model}, nil
}

// GenerateContent returns the first choice of a chat completion.
func (o *OpenAIClient) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.modelName,
		Messages: messages,
		// zero is dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return joinText([]string{resp.Choices[0].Message.Content})
}
