package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/invoker"
	"github.com/vk/planner/internal/origin"
	"github.com/vk/planner/internal/runconfig"
	"github.com/vk/planner/internal/selection"
	"github.com/vk/planner/internal/transport"
)

// runPlan requests one execution plan and prints it as JSON.
func (a *App) runPlan(ctx context.Context) error {
	p := a.config.Plan
	logger := ctxlog.FromContext(ctx).With("transport", p.Transport)

	runConfig := runconfig.RunConfig{}
	if p.RunConfigPath != "" {
		cfg, err := runconfig.LoadFile(p.RunConfigPath)
		if err != nil {
			return err
		}
		runConfig = cfg
	}

	sel, err := selection.New(p.SolidSelection, p.StepKeys)
	if err != nil {
		return err
	}

	tr, closeFn, err := a.newTransport(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	logger.Debug("Requesting execution plan.", "origin", p.OriginPath, "pipeline", p.Pipeline, "mode", p.Mode)
	snap, err := invoker.New(tr).GetExecutionPlan(ctx, origin.File(p.OriginPath, p.Pipeline), runConfig, p.Mode, sel, p.SnapshotID)
	if err != nil {
		return fmt.Errorf("failed to get execution plan: %w", err)
	}
	logger.Info("Execution plan received.", "steps", len(snap.Steps), "to_execute", len(snap.StepKeysToExecute))

	enc := json.NewEncoder(a.streams.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// newTransport builds the configured transport and a function releasing it.
func (a *App) newTransport(ctx context.Context) (transport.Transport, func(), error) {
	p := a.config.Plan
	noop := func() {}

	switch p.Transport {
	case TransportGRPC:
		tr, err := transport.DialGRPC(p.Addr, p.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return tr, func() { _ = tr.Close() }, nil

	case TransportSocketIO:
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout(p))
		defer cancel()
		tr, err := transport.DialSocketIO(dialCtx, p.Addr, p.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return tr, func() { _ = tr.Close() }, nil
	}

	command := p.WorkerCommand
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate worker binary: %w", err)
		}
		command = []string{exe, CommandWorker, "--log-level", a.config.LogLevel, "--log-format", a.config.LogFormat}
	}
	return transport.NewEphemeral(command[0], transport.WithArgs(command[1:]...), transport.WithTimeout(p.Timeout)), noop, nil
}

func dialTimeout(p PlanConfig) time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return transport.DefaultTimeout
}
