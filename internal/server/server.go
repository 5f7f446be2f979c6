// Package server exposes the masking engine over HTTP so editor plugins
// and other tools can mask and unmask SQL without shelling out to the CLI.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/sqlveil/internal/config"
	"github.com/leapstack-labs/sqlveil/internal/state"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"golang.org/x/sync/errgroup"
)

// Server is the sqlveil HTTP API server.
type Server struct {
	cfg    *config.Config
	store  state.SessionStore
	namer  mask.NamerFunc
	logger *slog.Logger
}

// Options hold the server's collaborators.
type Options struct {
	Config *config.Config
	Store  state.SessionStore // optional; nil disables session persistence
	Namer  mask.NamerFunc     // optional; required to honour semantic mode
	Logger *slog.Logger
}

// New creates a server instance.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    opts.Config,
		store:  opts.Store,
		namer:  opts.Namer,
		logger: logger,
	}
}

// Routes builds the HTTP handler. Split out from Serve so tests can drive
// the API through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/mask", s.handleMask)
		r.Post("/unmask", s.handleUnmask)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
	})
	return r
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.cfg.Server.Addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
