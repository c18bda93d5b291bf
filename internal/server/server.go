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

	"github.com/aristath/tradebook/internal/modules/accounting"
	"github.com/aristath/tradebook/internal/modules/auth"
	"github.com/aristath/tradebook/internal/modules/quotes"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	Auth       *auth.Handler
	Quotes     *quotes.Handler
	Stream     *quotes.StreamHandler
	Accounting *accounting.Handler
	System     *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		port:   cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.HeaderAPIKey, "username", "password"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes. Everything under /api except the key
// exchange requires a valid API key.
func (s *Server) setupRoutes(cfg Config) {
	// Health check
	s.router.Get("/health", cfg.System.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Key exchange is the one unauthenticated API route
		r.Get("/apikey", cfg.Auth.HandleGetAPIKey)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireKey)

			// System
			r.Route("/system", func(r chi.Router) {
				r.Get("/status", cfg.System.HandleSystemStatus)
			})

			// Quotes
			r.Route("/stocks", func(r chi.Router) {
				r.Get("/", cfg.Quotes.HandleListStocks)
				r.Post("/", cfg.Quotes.HandleAddStock)
				r.Get("/stream", cfg.Stream.ServeHTTP)
			})

			// Trades
			r.Route("/trades", func(r chi.Router) {
				r.Post("/", cfg.Accounting.HandleAddTrade)
				r.Put("/{positionID}", cfg.Accounting.HandleModifyTrade)
				r.Delete("/{positionID}", cfg.Accounting.HandleDeleteTrade)
			})

			// Reports
			r.Get("/portfolio", cfg.Accounting.HandleGetPortfolio)
			r.Get("/holdings", cfg.Accounting.HandleGetHoldings)
			r.Get("/returns", cfg.Accounting.HandleGetReturns)
			r.Get("/returns/history", cfg.Accounting.HandleGetReturnsHistory)
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
