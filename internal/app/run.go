package app

import (
	"context"
	"fmt"

	"github.com/vk/planner/internal/ctxlog"
)

// Run executes the configured command until it finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Command {
	case CommandPlan:
		return a.runPlan(ctx)
	case CommandWorker:
		return a.runWorker(ctx)
	case CommandServe:
		return a.runServe(ctx)
	}
	return fmt.Errorf("unknown command %q", a.config.Command)
}
