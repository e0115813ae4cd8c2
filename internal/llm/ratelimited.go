package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to the wrapped generator.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited allows requestsPerMinute calls per minute. Non-positive
// values return next unchanged.
func NewRateLimited(next Generator, requestsPerMinute int) Generator {
	if requestsPerMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (r *RateLimited) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return r.next.GenerateContent(ctx, system, prompt)
}

func (r *RateLimited) Unwrap() Generator { return r.next }
