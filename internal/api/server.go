// Package api provides the HTTP API server for the GameShelf dashboard.
//
// The read endpoints under /api/v1 are huma operations (typed handlers,
// OpenAPI document at /openapi.json). Health and the archive download
// are plain chi routes using the JSON envelope.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gameshelfapp/gameshelf-server/internal/config"
	"github.com/gameshelfapp/gameshelf-server/internal/http/response"
	"github.com/gameshelfapp/gameshelf-server/internal/ratelimit"
	"github.com/gameshelfapp/gameshelf-server/internal/search"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog *service.CatalogService
	store   *store.Store
	index   *search.SearchIndex
	router  *chi.Mux
	api     huma.API
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st *store.Store, index *search.SearchIndex, catalog *service.CatalogService, logger *slog.Logger) *Server {
	s := &Server{
		catalog: catalog,
		store:   st,
		index:   index,
		router:  chi.NewRouter(),
		limiter: NewRateLimiter(rateLimitPerMinute, time.Minute, rateLimitBurst),
		logger:  logger,
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("GameShelf API", Version)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-owned resources. The HTTP listener itself is
// owned and shut down by the caller.
func (s *Server) Close() {
	s.limiter.Stop()
}

// setupMiddleware configures the middleware stack. Must run before any
// route is registered.
func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	origins := []string{"*"}
	if cfg != nil && len(cfg.Server.CORSOrigins) > 0 {
		origins = cfg.Server.CORSOrigins
	}
	// The dashboard is a static frontend served from elsewhere; the API
	// itself is read-only.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Generous per-IP budget. This exists to stop bulk scraping of the
	// archive and search endpoints, not to meter the dashboard.
	s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Plain chi routes: envelope JSON and file streaming.
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/api/v1/archive", s.handleDownloadArchive)

	// Huma operations.
	s.registerGameRoutes()
	s.registerSearchRoutes()
	s.registerStatsRoutes()
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse contains health check data.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealthCheck reports per-component health. An unloaded snapshot
// is degraded, not unhealthy: the server is up and waiting for the
// first sync to land.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"search":   s.checkSearchIndex(),
		"snapshot": s.checkSnapshot(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, status, HealthResponse{
		Status:     overall,
		Version:    Version,
		Components: components,
	}, s.logger)
}

// checkDatabase verifies the snapshot database answers a read.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "database not configured",
		}
	}

	start := time.Now()
	_, err := s.store.CountGames(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "database read failed",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.index == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "search index not configured",
		}
	}

	start := time.Now()
	docCount, err := s.index.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}

	// Accessible but empty: degraded until the snapshot is replayed.
	if docCount == 0 {
		return ComponentHealth{
			Status:  "degraded",
			Latency: latency.String(),
			Message: "search index empty",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkSnapshot reports whether a collection snapshot is being served.
func (s *Server) checkSnapshot() ComponentHealth {
	if s.catalog == nil || !s.catalog.Ready() {
		return ComponentHealth{
			Status:  "degraded",
			Message: "collection snapshot not loaded yet",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Message: "loaded " + time.Since(s.catalog.LoadedAt()).Round(time.Second).String() + " ago",
	}
}
