// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the read-only operator API: job table, channel
// overview, command preview, health and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
	"github.com/ManuGH/iptranscoder/internal/health"
	"github.com/ManuGH/iptranscoder/internal/log"
	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

// JobSource exposes the reconciler's latest snapshot.
type JobSource interface {
	Snapshot() enforcer.Snapshot
}

// CommandPreviewer renders a channel command without side effects.
type CommandPreviewer interface {
	Preview(ch model.Channel, purpose model.Purpose) ([]string, error)
}

// Deps are the collaborators the API reads from.
type Deps struct {
	Store    store.Reader
	Jobs     JobSource
	Commands CommandPreviewer
	Health   *health.Manager
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
	// ServiceName names HTTP spans.
	ServiceName string
}

// Server is the operator API.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.ServiceName == "" {
		deps.ServiceName = "transcoderd"
	}
	s := &Server{deps: deps, logger: log.WithComponent("api")}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Tracing(s.deps.ServiceName))
	r.Use(RequestLogger)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.deps.RateLimit > 0 {
			r.Use(RateLimit(RateLimitConfig{RequestLimit: s.deps.RateLimit, WindowSize: time.Minute}))
		}
		r.Get("/jobs", s.handleJobs)
		r.Get("/overview", s.handleOverview)
		r.Get("/channels/{id}/command", s.handleCommand)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeNotFound(w) })
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("operator API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Msg("operator API stopped")
	return nil
}
