package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/ai/services/stats"
	"github.com/hrygo/mirrormatch/internal/profile"
	apiv1 "github.com/hrygo/mirrormatch/server/router/api/v1"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/server/service/reputation"
	"github.com/hrygo/mirrormatch/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	reconciler *reputation.Reconciler
	history    *stats.Persister
}

// Option attaches a background component the server owns.
type Option func(*Server)

// WithReconciler runs r alongside the HTTP server.
func WithReconciler(r *reputation.Reconciler) Option {
	return func(s *Server) { s.reconciler = r }
}

// WithHistory drains p on shutdown.
func WithHistory(p *stats.Persister) Option {
	return func(s *Server) { s.history = p }
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, svc *matchmaker.Service, opts ...Option) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}
	for _, opt := range opts {
		opt(s)
	}

	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	apiV1Service := apiv1.NewAPIV1Service(profile, svc)
	if err := apiV1Service.RegisterGateway(ctx, echoServer); err != nil {
		return nil, errors.Wrap(err, "failed to register gateway")
	}
	return s, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	if s.reconciler != nil {
		s.reconciler.Start(ctx)
	}
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.echoServer.Listener == nil {
		return nil
	}
	return s.echoServer.Listener.Addr()
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if s.reconciler != nil {
		s.reconciler.Stop()
	}
	if s.history != nil {
		if err := s.history.Close(5 * time.Second); err != nil {
			slog.Warn("match history not fully flushed", "error", err)
		}
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server stopped properly")
}
