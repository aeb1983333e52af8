package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mekanizma/modli/backend/internal/app"
)

type Server struct {
	App        *app.App
	httpServer *http.Server
}

func New(app *app.App) (*Server, error) {
	if app == nil || app.Config == nil {
		return nil, errors.New("server requires an initialized app")
	}
	return &Server{App: app}, nil
}

func (s *Server) SetupHTTPServer(handler http.Handler) {
	cfg := s.App.Config.Server
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.App.Logger.Info().
		Str("port", s.App.Config.Server.Port).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP first, then releases the broker, Redis and the
// database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	s.App.Logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server stopped")

	if s.App.Publisher != nil {
		if err := s.App.Publisher.Close(); err != nil {
			s.App.Logger.Warn().Err(err).Msg("failed to close RabbitMQ connection")
		}
	}
	if s.App.RedisClient != nil {
		if err := s.App.RedisClient.Close(); err != nil {
			s.App.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if s.App.DB != nil {
		s.App.DB.Close()
	}

	return nil
}
