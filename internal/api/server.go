// Package api exposes screening runs, their progress and their history over HTTP.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/fmuoria/nexushire/internal/agent"
	"github.com/fmuoria/nexushire/internal/auth"
	"github.com/fmuoria/nexushire/internal/config"
	"github.com/fmuoria/nexushire/internal/logger"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed schema/process_request.json
var processRequestSchema string

// UserStore looks up and registers accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// BatchReader serves screening history.
type BatchReader interface {
	ListByUser(ctx context.Context, userID int64) ([]models.BatchSummary, error)
	GetForUser(ctx context.Context, batchID, userID int64) (*models.ScreeningBatch, error)
	Results(ctx context.Context, batchID int64) ([]models.CandidateResult, error)
}

// Runner starts screening runs and exposes their progress.
type Runner interface {
	Start(ctx context.Context, job agent.Job) (string, error)
	Progress() progress.Store
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	users      UserStore
	batches    BatchReader
	runner     Runner
	tokens     *auth.TokenIssuer
	schema     *gojsonschema.Schema
	logger     *zap.Logger
	config     config.ServerConfig
}

// NewServer creates a new API server instance.
func NewServer(cfg config.ServerConfig, users UserStore, batches BatchReader, runner Runner, tokens *auth.TokenIssuer, log *zap.Logger) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(processRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to load process request schema: %w", err)
	}

	s := &Server{
		router:  mux.NewRouter(),
		users:   users,
		batches: batches,
		runner:  runner,
		tokens:  tokens,
		schema:  schema,
		logger:  logger.WithFields(log),
		config:  cfg,
	}
	s.setupRouter()
	return s, nil
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	limiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(corsMiddleware(s.config.CORSOrigin))
	s.router.Use(rateLimitMiddleware(limiter))

	s.router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost, http.MethodOptions)

	// OPTIONS is listed so preflight requests reach the CORS middleware.
	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/results", s.handleResults).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/history/{batch_id}", s.handleBatch).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/history/{batch_id}/export", s.handleExport).Methods(http.MethodGet, http.MethodOptions)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorBody{Code: "NOT_FOUND", Message: "route not found"}})
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "NexusHire AI Secure API is running",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
