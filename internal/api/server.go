// Package api provides the HTTP API server and handlers for the StreamNest application.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/streamnestapp/streamnest-server/internal/auth"
	"github.com/streamnestapp/streamnest-server/internal/config"
	"github.com/streamnestapp/streamnest-server/internal/http/response"
	"github.com/streamnestapp/streamnest-server/internal/ratelimit"
	"github.com/streamnestapp/streamnest-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  Services
	tokens    *auth.TokenService
	telemetry *ratelimit.KeyedRateLimiter
	cfg       *config.Config
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services Services, tokens *auth.TokenService, telemetry *ratelimit.KeyedRateLimiter, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		services:  services,
		tokens:    tokens,
		telemetry: telemetry,
		cfg:       cfg,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", s.handleMintToken)
		})

		// Media catalog and playback (require auth).
		r.Route("/media", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateMedia)
			r.Get("/", s.handleListMedia)
			r.Get("/{mediaID}", s.handleGetMedia)

			r.Post("/{mediaID}/playback/start", s.handleStartSession)

			r.Route("/playback", func(r chi.Router) {
				r.Get("/active", s.handleGetActiveSession)
				r.Get("/history", s.handleGetHistory)
				r.Post("/pause", s.handlePauseSession)
				r.Post("/resume", s.handleResumeSession)
				r.Post("/end", s.handleEndSession)

				// Heartbeats arrive every few seconds per client; throttle them.
				r.With(s.limitTelemetry).Post("/progress", s.handleProgress)
			})
		})

		// Direct view recording (requires auth, throttled).
		r.Route("/content", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.With(s.limitTelemetry).Post("/{contentType}/{contentID}/view", s.handleRecordView)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// Helper functions.

// parsePaginationParams parses pagination parameters from query string.
func parsePaginationParams(r *http.Request) store.PaginationParams {
	params := store.DefaultPaginationParams()

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil {
			params.Page = page
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}

	// Validate parameters.
	params.Validate()

	return params
}
