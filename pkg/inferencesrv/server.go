package inferencesrv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/superkart-inference/internal/api"
	"github.com/usestring/superkart-inference/internal/batch"
	"github.com/usestring/superkart-inference/internal/cache"
	"github.com/usestring/superkart-inference/internal/config"
	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/logging"
	"github.com/usestring/superkart-inference/internal/mcp"
	"github.com/usestring/superkart-inference/internal/mcp/prompts"
	"github.com/usestring/superkart-inference/internal/mcp/tools"
	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/service"
)

// Version is reported by / and to MCP clients. Set at build time with
// -ldflags "-X github.com/usestring/superkart-inference/pkg/inferencesrv.Version=...".
var Version = "dev"

// Server is the inference service.
// It wraps the internal implementation and provides extension points.
type Server struct {
	cfg        *config.Config
	gw         *gateway.Gateway
	mcp        *mcp.Server
	http       *api.Server
	deps       *Deps
	watchPath  string
	logCleanup func() error
}

// NewServer loads the model and builds the service. The returned error wraps
// model.ErrUnavailable when the model cannot be loaded.
func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	sc := &serverConfig{}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.config == nil {
		sc.config = config.Load()
	}
	cfg := sc.config
	if sc.logLevel != "" {
		cfg.LogLevel = sc.logLevel
	}
	if sc.logFile != "" {
		cfg.LogFile = sc.logFile
	}
	if sc.modelPath != "" {
		cfg.ModelPath = sc.modelPath
		cfg.ModelURL = ""
	}
	if sc.transport != "" {
		cfg.Transport = sc.transport
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCleanup, err := logging.Setup(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	s := &Server{cfg: cfg, logCleanup: logCleanup}
	if err := s.build(ctx, sc); err != nil {
		_ = logCleanup()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context, sc *serverConfig) error {
	cfg := s.cfg

	var regOpts []schema.Option
	if cfg.NormalizeSugar {
		regOpts = append(regOpts, schema.WithSugarContentAliases())
	}
	reg, err := schema.NewRegistry(schema.DefaultFields(), regOpts...)
	if err != nil {
		return fmt.Errorf("building schema registry: %w", err)
	}

	var gwOpts []gateway.Option
	if cfg.PredictionCacheSize > 0 {
		pc, err := cache.NewPredictionCache(cfg.PredictionCacheSize)
		if err != nil {
			return fmt.Errorf("failed to create prediction cache: %w", err)
		}
		gwOpts = append(gwOpts, gateway.WithCache(pc))
	}

	loader := sc.loader
	switch {
	case loader != nil:
	case cfg.ModelURL != "":
		remoteOpts := []model.RemoteOption{model.WithTimeout(cfg.ModelTimeout)}
		if sc.httpClient != nil {
			remoteOpts = append(remoteOpts, model.WithHTTPClient(sc.httpClient))
		}
		loader = model.RemoteLoader{URL: cfg.ModelURL, Options: remoteOpts}
	default:
		loader = model.FileLoader{Path: cfg.ModelPath}
		if cfg.ModelWatch {
			s.watchPath = cfg.ModelPath
		}
	}

	s.gw, err = gateway.New(ctx, reg, loader, gwOpts...)
	if err != nil {
		return err
	}

	svc := service.New(s.gw, service.Config{
		MaxBatchRows: cfg.MaxBatchRows,
		Batch:        batch.Config{Workers: cfg.BatchWorkers, ChunkSize: cfg.BatchChunkSize},
	})
	s.deps = &Deps{Service: svc, Gateway: s.gw, Config: cfg}

	mcpOpts := []mcp.ServerOption{mcp.WithVersion(Version)}
	if !sc.disableBuiltinTools {
		mcpOpts = append(mcpOpts, mcp.WithBuiltinTools())
	}
	if !sc.disableBuiltinPrompts {
		mcpOpts = append(mcpOpts, mcp.WithBuiltinPrompts(prompts.Config{
			MaxBatchRows:        cfg.MaxBatchRows,
			SugarContentAliases: cfg.NormalizeSugar,
		}))
	}
	for _, fns := range [][]func(*sdkmcp.Server){sc.toolRegistrations, sc.promptRegistrations, sc.resourceRegistrations} {
		for _, fn := range fns {
			mcpOpts = append(mcpOpts, mcp.WithCustomRegistration(fn))
		}
	}
	for _, fn := range sc.deferredToolRegistrations {
		mcpOpts = append(mcpOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, s.deps)
		}))
	}

	s.mcp, err = mcp.NewServer(&tools.Deps{Service: svc}, mcpOpts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	s.http = api.New(svc, api.Config{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxBodyBytes:    cfg.MaxBodyBytes(),
		CORSOrigins:     cfg.CORSOrigins,
		Version:         Version,
	}, api.WithMCPHandler(s.mcp.HTTPHandler()))
	return nil
}

// Run serves on the configured transport until ctx is cancelled. A file
// model is reloaded whenever its artifact changes.
func (s *Server) Run(ctx context.Context) error {
	if s.watchPath != "" {
		if err := model.Watch(ctx, s.watchPath, model.DefaultWatchDebounce, func() { s.reload(ctx) }); err != nil {
			slog.Warn("model hot reload disabled", slog.String("error", err.Error()))
		}
	}

	if s.cfg.Transport == config.TransportStdio {
		slog.Info("starting MCP server on stdio")
		return s.mcp.Run(ctx)
	}
	return s.http.Run(ctx)
}

// reload swaps in the changed artifact. Gateway.Reload logs the outcome and
// keeps the current model on failure.
func (s *Server) reload(ctx context.Context) {
	_, _ = s.gw.Reload(ctx)
}

// Handler returns the HTTP handler (REST endpoints and /mcp).
func (s *Server) Handler() http.Handler {
	return s.http.Handler()
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
