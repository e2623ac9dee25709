package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
	"github.com/anibalssilva/tech-challenge-books-api/internal/books"
	"github.com/anibalssilva/tech-challenge-books-api/internal/handler"
	"github.com/anibalssilva/tech-challenge-books-api/internal/logsink"
	"github.com/anibalssilva/tech-challenge-books-api/internal/server/middleware"
	"github.com/anibalssilva/tech-challenge-books-api/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int // login/register requests per minute per IP
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       60,
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the catalog
// dataset, the credential store, the auth service, and the request-event
// sink fanout.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *auth.Service
	dataset    *books.Dataset
	sinks      *logsink.Fanout
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *auth.Service, dataset *books.Dataset, sinks *logsink.Fanout, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		dataset: dataset,
		sinks:   sinks,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// RequestID runs first so every later stage, including the recoverer's
	// 500, carries the correlation id. The recoverer sits outside the
	// request logger: the logger records the failure and re-raises, the
	// recoverer turns the re-raised panic into a 500 response.
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.sinks))

	authHandler := handler.NewAuthHandler(s.authSvc, s.store)
	booksHandler := handler.NewBooksHandler(s.dataset)

	r.Route("/auth", func(r chi.Router) {
		// Credential-bearing endpoints are rate limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.RateLimit))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Post("/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))
			r.Use(middleware.RequireActive())
			r.Get("/me", authHandler.Me)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Put("/admin", authHandler.SetAdmin)
				r.Put("/disable", authHandler.SetDisabled)
			})
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", booksHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))
			r.Use(middleware.RequireActive())

			r.Get("/books", booksHandler.List)
			r.Get("/books/search", booksHandler.Search)
			r.Get("/books/top-rated", booksHandler.TopRated)
			r.Get("/books/price-range", booksHandler.PriceRange)
			r.Get("/books/{id}", booksHandler.Get)
			r.Get("/categories", booksHandler.Categories)
			r.Get("/stats/categories", booksHandler.Stats)
		})
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the sinks and the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.sinks.Close(); err != nil {
		s.logger.Warn("closing log sinks", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing store", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
