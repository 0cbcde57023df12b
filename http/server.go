// Package http serves the sales dashboard and its JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 10 << 20,
	}
}

// NewRouter mounts pages, API routes and the websocket endpoint. The
// websocket route skips the timeout and gzip middleware, which cannot wrap
// a hijacked connection.
func NewRouter(config ServerConfig, h *Handler) http.Handler {
	mux := http.NewServeMux()
	h.RegisterHandlers(mux)
	h.RegisterDashboardRoutes(mux)

	chain := Chain(
		RecoveryMiddleware(h.logger),
		LoggerMiddleware(h.logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxUploadBytes),
		TimeoutMiddleware(config.Timeout),
		GzipMiddleware,
	)

	root := http.NewServeMux()
	if h.deps.Hub != nil {
		root.Handle("GET /api/ws/dashboard", Chain(
			RecoveryMiddleware(h.logger),
			LoggerMiddleware(h.logger),
		)(http.HandlerFunc(h.deps.Hub.HandleWebSocket)))
	}
	root.Handle("/", chain(mux))
	return root
}

func NewServer(config ServerConfig, h *Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			Handler:     NewRouter(config, h),
			ReadTimeout: config.Timeout,
			// Write timeout is left to TimeoutMiddleware so websocket
			// connections are not cut off.
			IdleTimeout: 120 * time.Second,
		},
		config: config,
		logger: h.logger,
	}
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("websocket", fmt.Sprintf("ws://localhost%s/api/ws/dashboard", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
