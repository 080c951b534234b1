package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/config"
	"github.com/devmock/devmock/pkg/engine"
)

// Server is the standalone devmock HTTP server.
//
// It owns an http.Server whose handler is the engine-wrapped router and
// supports graceful shutdown: WebSocket connections get a 1001 close
// handshake, in-flight HTTP requests drain, then the listener closes.
type Server struct {
	server          *http.Server
	engine          *engine.Engine
	config          config.ServerConfig
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// New creates the server in a stopped state. Call Start to begin serving.
func New(cfg *config.Config, eng *engine.Engine) *Server {
	router := NewRouter(cfg, eng)

	server := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// No WriteTimeout: responses may sit behind configured mock delays,
		// and upgraded WebSocket connections outlive any sane value.
	}

	return &Server{
		server:          server,
		engine:          eng,
		config:          cfg.Server,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start runs the server and blocks until the context is cancelled or the
// listener fails. Cancellation triggers graceful shutdown bounded by the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("devmock server listening",
			"addr", s.server.Addr,
			"prefixes", s.engine.Prefixes())

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server shutdown signal received")
		// Don't reuse the cancelled ctx: it would abort the drain immediately
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop gracefully shuts the server down: WebSocket sessions first, then the
// HTTP listener. Safe to call multiple times and concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("server shutdown initiated")

		if err := s.engine.Shutdown(ctx); err != nil {
			logger.Warn("websocket drain incomplete", logger.Err(err))
		}

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			logger.Error("server shutdown error", logger.Err(err))
		} else {
			logger.Info("server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
