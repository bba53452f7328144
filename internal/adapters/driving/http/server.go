package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService   driving.AuthService
	ingestService driving.IngestService
	docService    driving.DocumentService
	jobService    driving.JobService
	searchService driving.SearchService
	pipeline      driving.PipelineDriver

	// Infrastructure
	taskQueue      driven.TaskQueue
	db             Pinger // PostgreSQL health check
	redisClient    Pinger // Redis health check (optional)
	maxUploadBytes int64
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 100 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	ingestService driving.IngestService,
	docService driving.DocumentService,
	jobService driving.JobService,
	searchService driving.SearchService,
	pipeline driving.PipelineDriver,
	taskQueue driven.TaskQueue,
	db Pinger,
	redisClient Pinger, // can be nil
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger.With("component", "http_server"),
		authService:    authService,
		ingestService:  ingestService,
		docService:     docService,
		jobService:     jobService,
		searchService:  searchService,
		pipeline:       pipeline,
		taskQueue:      taskQueue,
		db:             db,
		redisClient:    redisClient,
		maxUploadBytes: maxUpload,
	}

	s.setupRoutes()

	// Outermost recovery so panics in any middleware are still caught.
	handler := NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)
	handler = NewLoggingMiddleware(s.logger).Handler(handler)
	handler = NewRecoveryMiddleware(s.logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes. Reads and search are open;
// mutations sit behind operator token auth.
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Document endpoints
	s.router.Handle("POST /api/v1/documents/upload",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUploadDocument)))
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/stats", s.handleDocumentStats)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("GET /api/v1/documents/{id}/chunks", s.handleGetDocumentChunks)
	s.router.Handle("DELETE /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteDocument)))
	s.router.Handle("POST /api/v1/documents/{id}/reprocess",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleReprocessDocument)))

	// Job endpoints
	s.router.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	s.router.HandleFunc("GET /api/v1/jobs/stats", s.handleJobStats)
	s.router.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)
	s.router.Handle("POST /api/v1/jobs/{id}/retry",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRetryJob)))
	s.router.Handle("POST /api/v1/jobs/{id}/cancel",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCancelJob)))
	s.router.Handle("DELETE /api/v1/jobs/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteJob)))
	s.router.Handle("POST /api/v1/jobs/bulk",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleBulkJobs)))

	// Search endpoints
	s.router.HandleFunc("POST /api/v1/search", s.handleSearch)
	s.router.HandleFunc("POST /api/v1/search/hybrid", s.handleSearchHybrid)
	s.router.HandleFunc("POST /api/v1/search/semantic", s.handleSearchSemantic)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
