package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/logger"
	"go.uber.org/zap"
)

// Generator produces a completion for a system instruction and a user prompt.
// Implementations sample deterministically (temperature 0).
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// ErrEmptyResponse is returned when a backend answers without text.
var ErrEmptyResponse = errors.New("model returned empty response")

// New builds the configured backend, paced and logged.
func New(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch cfg.Provider {
	case config.ProviderVertex:
		gen, err = NewVertexAIClient(ctx, cfg.Project, cfg.Location, cfg.Model)
	case config.ProviderGemini:
		gen, err = NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case config.ProviderOpenAI:
		gen, err = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	gen = NewRateLimited(gen, cfg.RequestsPerMinute)
	return &loggingGenerator{
		next:   gen,
		logger: logger.WithFields(log, zap.String("llm_provider", cfg.Provider), zap.String("llm_model", cfg.Model)),
	}, nil
}

// Close releases the backend client when it holds one.
func Close(g Generator) error {
	for g != nil {
		if c, ok := g.(io.Closer); ok {
			return c.Close()
		}
		u, ok := g.(interface{ Unwrap() Generator })
		if !ok {
			return nil
		}
		g = u.Unwrap()
	}
	return nil
}

type loggingGenerator struct {
	next   Generator
	logger *zap.Logger
}

func (l *loggingGenerator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	out, err := l.next.GenerateContent(ctx, system, prompt)
	if err != nil {
		l.logger.Warn("generation failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	l.logger.Debug("generation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("prompt", logger.Truncate(prompt, 200)),
		zap.String("response", logger.Truncate(out, 200)),
	)
	return out, nil
}

func (l *loggingGenerator) Unwrap() Generator { return l.next }

func joinText(parts []string) (string, error) {
	out := strings.TrimSpace(strings.Join(parts, ""))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
