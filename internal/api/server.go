// Package api serves the inference service over HTTP with echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/usestring/superkart-inference/internal/service"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string
	Version         string
}

// Server is the HTTP front of a Service.
type Server struct {
	e   *echo.Echo
	svc *service.Service
	cfg Config
}

// Option configures a Server.
type Option func(*Server)

// WithMCPHandler mounts an MCP streamable HTTP handler on /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.e.Any("/mcp", echo.WrapHandler(h))
	}
}

// New builds the router.
func New(svc *service.Service, cfg Config, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{e: e, svc: svc, cfg: cfg}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: origins}))
	if cfg.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.MaxBodyBytes, 10) + "B"))
	}

	s.routes()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() {
	s.e.GET("/", s.root)
	s.e.GET("/health", s.health)
	s.e.GET("/schema", s.schema)
	s.e.GET("/model/info", s.modelInfo)
	s.e.POST("/model/reload", s.reload)
	s.e.POST("/predict", s.predict)
	s.e.POST("/predict/batch", s.predictBatch)
	s.e.POST("/transform/single", s.transformSingle)
	s.e.POST("/transform/batch", s.transformBatch)
	s.e.POST("/validate/batch", s.validateBatch)
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", s.cfg.Addr))
		errc <- s.e.StartServer(srv)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.e.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request at a level matching the status.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		}
		switch {
		case status >= 500:
			slog.Error("request failed", attrs...)
		case status >= 400:
			slog.Warn("request rejected", attrs...)
		default:
			slog.Info("request completed", attrs...)
		}
		return nil
	}
}
