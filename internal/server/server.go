// Package server provides the HTTP server and routing for corrscope.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/corrscope/internal/database"
	"github.com/aristath/corrscope/internal/events"
	"github.com/aristath/corrscope/internal/metrics"
	"github.com/aristath/corrscope/internal/modules/correlation"
	correlationhandlers "github.com/aristath/corrscope/internal/modules/correlation/handlers"
	universehandlers "github.com/aristath/corrscope/internal/modules/universe/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Engine    *correlation.Engine
	EventBus  *events.Bus
	Jobs      JobRunner // may be nil
	Databases []*database.DB
	Metrics   *metrics.Metrics // may be nil

	// Company directory routes are mounted when both are set
	Companies universehandlers.CompanyReader
	Directory universehandlers.DirectorySource
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	engine         *correlation.Engine
	eventBus       *events.Bus
	metrics        *metrics.Metrics
	systemHandlers *SystemHandlers
	universe       *universehandlers.UniverseHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	var snapshots SnapshotSource
	if cfg.Engine != nil {
		snapshots = cfg.Engine
	}

	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		port:     cfg.Port,
		engine:   cfg.Engine,
		eventBus: cfg.EventBus,
		metrics:  cfg.Metrics,
		systemHandlers: NewSystemHandlers(
			snapshots,
			cfg.Jobs,
			cfg.Databases,
			cfg.Log,
		),
	}

	if cfg.Companies != nil && cfg.Directory != nil {
		s.universe = universehandlers.NewUniverseHandlers(cfg.Companies, cfg.Directory, cfg.Log)
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream and websocket stay open.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived event routes skip the timeout and compression middleware
		if s.eventBus != nil {
			r.Get("/events/stream", NewEventsStreamHandler(s.eventBus, s.log).ServeHTTP)
			r.Get("/events/ws", NewEventsWebSocketHandler(s.eventBus, s.log).ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			})

			if s.engine != nil {
				correlationhandlers.NewHandler(s.engine, s.log).RegisterRoutes(r)
			}
			if s.universe != nil {
				s.universe.RegisterRoutes(r)
			}
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
