package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/pkg/inferencesrv"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration is loaded from environment variables and .env:
	// - MODEL_PATH / MODEL_URL: artifact file or remote inference service
	// - TRANSPORT: http (REST + /mcp, default) or stdio (MCP only)
	// - LOG_LEVEL, LOG_FORMAT, LOG_FILE
	// - etc. (see internal/config for all options)
	server, err := inferencesrv.NewServer(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUnavailable) {
			slog.Error("no model to serve", "error", err)
		} else {
			slog.Error("failed to create server", "error", err)
		}
		os.Exit(1)
	}
	defer server.Close()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
