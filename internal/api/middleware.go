package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fmuoria/nexushire/internal/auth"
	apperrors "github.com/fmuoria/nexushire/internal/errors"
	"github.com/fmuoria/nexushire/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey int

const userKey contextKey = iota

// userFrom returns the authenticated user of the request.
func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware recovers from panics and returns 500 error.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
					Code:    "INTERNAL_ERROR",
					Message: "An internal server error occurred",
				}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware resolves the bearer token to a user.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.respondError(w, r, apperrors.Unauthorized("Not authenticated"))
			return
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			s.respondError(w, r, apperrors.Unauthorized("Could not validate credentials"))
			return
		}

		user, err := s.users.GetByID(r.Context(), claims.UserID)
		if err != nil || user.Email != claims.Subject {
			s.respondError(w, r, apperrors.Unauthorized("Could not validate credentials"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing rps requests per second per
// client. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	limiter, ok := rl.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[client] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects clients that exceed their request budget.
func rateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				respondJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ErrorBody{
					Code:    "RATE_LIMIT_EXCEEDED",
					Message: "Too many requests",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
