package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/worker"
)

// WorkerExitError carries the exit code of an ephemeral worker run. The
// response has already been written, so there is nothing to print.
type WorkerExitError struct {
	Code int
}

func (e *WorkerExitError) Error() string {
	return fmt.Sprintf("worker exited with code %d", e.Code)
}

// Streams are the process streams the app talks to. Logs always go to Err:
// an ephemeral worker's Out carries nothing but its response.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	streams Streams
	config  *Config
	logger  *slog.Logger
	ctx     context.Context
	loader  config.Loader
	handler *worker.Handler

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. loader is only used
// by the worker side.
func NewApp(streams Streams, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, streams.Err)
	logger.Debug("Logger configured successfully.", "command", cfg.Command)

	return &App{
		streams: streams,
		config:  cfg,
		logger:  logger,
		ctx:     ctxlog.WithLogger(context.Background(), logger),
		loader:  loader,
		handler: worker.NewHandler(loader),
	}
}
