// Package api exposes the acquisition engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Scraper runs one acquisition request. *engine.Engine implements it.
type Scraper interface {
	Run(ctx context.Context, req types.Request) (*types.ScrapeResult, error)
}

// Server provides the REST API.
type Server struct {
	router  chi.Router
	cfg     config.ServerConfig
	scraper Scraper
	store   storage.Storage
	metrics *observability.Metrics
	logger  *slog.Logger

	metricsPath string
}

// Option configures a Server.
type Option func(*Server)

// WithStorage persists every successful result.
func WithStorage(s storage.Storage) Option {
	return func(srv *Server) { srv.store = s }
}

// WithMetrics records request metrics and mounts the exposition handler at path.
func WithMetrics(m *observability.Metrics, path string) Option {
	return func(srv *Server) {
		srv.metrics = m
		srv.metricsPath = path
	}
}

// NewServer creates a new API server.
func NewServer(cfg config.ServerConfig, scraper Scraper, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		scraper: scraper,
		logger:  logger.With("component", "api_server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/sources", s.handleSources)
	r.Post("/scrape", s.handleScrape)

	if s.metrics != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics)
	}
	return r
}

// ListenAndServe serves on the configured port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Request contexts are derived from ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("API server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
