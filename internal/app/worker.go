package app

import (
	"context"

	"github.com/vk/planner/internal/worker"
)

// runWorker answers exactly one request from stdin and reports the worker's
// exit code through a WorkerExitError when it is not zero.
func (a *App) runWorker(ctx context.Context) error {
	code := worker.ServeStdio(ctx, a.handler, a.streams.In, a.streams.Out)
	if code != 0 {
		return &WorkerExitError{Code: code}
	}
	return nil
}
