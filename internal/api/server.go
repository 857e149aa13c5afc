package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/church-reconciler/internal/api/handlers"
	"github.com/eshaffer321/church-reconciler/internal/api/middleware"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	MaxUploadMB    int
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		MaxUploadMB:    32,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	service    *service.ReconciliationService
	suggester  reconcile.Suggester
}

// NewServer creates a new API server.
// If svc is nil, reconciliation endpoints will not be available; if
// suggester is nil the suggest endpoint answers 503.
func NewServer(cfg Config, repo storage.Repository, svc *service.ReconciliationService, suggester reconcile.Suggester, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    logger,
		repo:      repo,
		service:   svc,
		suggester: suggester,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	var runs storage.RunRepository
	if s.repo != nil {
		runs = s.repo
	}
	healthHandler := handlers.NewHealthHandler(runs, s.service, s.suggester != nil)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Run history and finalized ledgers
		if s.repo != nil {
			runsHandler := handlers.NewRunsHandler(s.repo)
			r.Get("/runs", runsHandler.List)
			r.Get("/runs/{id}", runsHandler.Get)
			r.Get("/runs/{id}/ledger", runsHandler.Ledger)

			associationsHandler := handlers.NewAssociationsHandler(s.repo)
			r.Get("/associations", associationsHandler.List)
		}

		// Reconciliation jobs and their results
		if s.service != nil {
			maxUpload := int64(s.config.MaxUploadMB) << 20
			h := handlers.NewReconciliationsHandler(s.service, s.suggester, maxUpload)
			r.Post("/reconciliations", h.Start)
			r.Get("/reconciliations", h.List)
			r.Route("/reconciliations/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Cancel)
				r.Get("/results", h.Results)
				r.Get("/results/{resultID}/candidates", h.Candidates)
				r.Post("/results/{resultID}/match", h.Match)
				r.Post("/results/{resultID}/identify", h.Identify)
				r.Post("/results/{resultID}/confirm", h.Confirm)
				r.Post("/results/{resultID}/suggest", h.Suggest)
				r.Post("/finalize", h.Finalize)
				r.Get("/export", h.Export)
			})
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// uploads of scanned statements can be slow
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
