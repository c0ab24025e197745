// Package admin serves the HTTP admin API: health checks, live server
// status, and the Prometheus metrics endpoint. It runs beside the
// transfer listener on its own port and never touches the transfer
// protocol.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/pkg/store"
)

// Config holds the admin HTTP server settings.
type Config struct {
	// Port is the TCP port the admin API listens on.
	Port int

	// ReadTimeout bounds reading a request, WriteTimeout bounds writing
	// its response, IdleTimeout bounds keep-alive waits.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 9090
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
}

// StatusSource reports live transfer-server state for /v1/status. It is
// the narrow slice of pkg/server.Server the admin API needs.
type StatusSource interface {
	Addr() string
	ActiveSessions() int32
	TotalConnections() uint64
	Uptime() time.Duration
}

// Server is the admin HTTP server.
//
// Endpoints:
//   - GET /healthz: liveness plus storage backend health
//   - GET /v1/status: transfer server counters
//   - GET /metrics: Prometheus exposition (when metrics are enabled)
//
// The server is created stopped; Start blocks until the context is
// cancelled or serving fails.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates the admin server. src may be nil (status reports
// unavailable); st may be nil (health reports the backend as absent).
func NewServer(config Config, src StatusSource, st store.Store) *Server {
	config.applyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewRouter(src, st),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start serves the admin API until ctx is cancelled or the listener
// fails. Cancellation triggers a bounded graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Admin API listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Admin API shutdown signal received")
		// The cancelled ctx would abort Shutdown immediately; give
		// in-flight requests their own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API failed: %w", err)
	}
}

// Stop shuts the admin server down gracefully. Safe to call multiple
// times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown error: %w", err)
		} else {
			logger.Info("Admin API stopped")
		}
	})
	return shutdownErr
}

// Port returns the configured admin port.
func (s *Server) Port() int {
	return s.config.Port
}
