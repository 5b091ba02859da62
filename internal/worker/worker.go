// Package worker computes execution plans on behalf of a remote caller. It is
// the only place pipeline definitions are loaded; every request resolves its
// origin and builds its plan in a fresh context.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/origin"
	"github.com/vk/planner/internal/plan"
	"github.com/vk/planner/internal/runconfig"
	"github.com/vk/planner/internal/wire"
)

// ClassWorkerPanic tags failures recovered from a panic while planning.
const ClassWorkerPanic = "WorkerPanic"

// Handler turns wire requests into wire responses.
type Handler struct {
	loader config.Loader
}

// NewHandler creates a Handler that loads definitions with loader.
func NewHandler(loader config.Loader) *Handler {
	return &Handler{loader: loader}
}

// Handle computes the plan for req. It never returns an error: every failure,
// panics included, is captured in the response.
func (h *Handler) Handle(ctx context.Context, req *wire.Request) (resp *wire.Response) {
	resp = &wire.Response{RequestID: req.RequestID}
	ctx, logger := ctxlog.With(ctx, "request_id", req.RequestID, "pipeline", req.Origin.Pipeline)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic while building execution plan.", "panic", r)
			resp.Snapshot = nil
			resp.Failure = &wire.Failure{
				Message:    fmt.Sprintf("worker panic: %v", r),
				StackTrace: string(debug.Stack()),
				ClassName:  ClassWorkerPanic,
			}
		}
	}()

	logger.Debug("Handling execution plan request.", "mode", req.Mode)
	snap, err := h.plan(ctx, req)
	if err != nil {
		logger.Info("Execution plan request failed.", "error", err)
		stack := debug.Stack()
		var se *stackError
		if errors.As(err, &se) {
			stack = se.stack
			err = se.err
		}
		resp.Failure = wire.FailureFromError(err, string(stack))
		return resp
	}

	resp.Snapshot = snap
	logger.Debug("Execution plan request succeeded.", "steps", len(snap.Steps))
	return resp
}

// stackError carries the worker-side stack recorded where a planning stage
// returned err. Errors from the planning packages carry no stack of their own,
// so this is the deepest frame available outside a panic.
type stackError struct {
	err   error
	stack []byte
}

func (e *stackError) Error() string { return e.err.Error() }

func (e *stackError) Unwrap() error { return e.err }

func withStack(err error) error {
	return &stackError{err: err, stack: debug.Stack()}
}

func (h *Handler) plan(ctx context.Context, req *wire.Request) (*plan.Snapshot, error) {
	sel, err := req.Selection()
	if err != nil {
		return nil, withStack(err)
	}

	handle, err := origin.Resolve(ctx, req.Origin, h.loader)
	if err != nil {
		return nil, withStack(err)
	}

	snap, err := plan.NewBuilder(handle.Converter).Build(ctx, plan.Input{
		Pipeline:   handle.Pipeline,
		RunConfig:  runconfig.FromMap(req.RunConfig),
		Mode:       req.Mode,
		Selection:  sel,
		SnapshotID: req.PipelineSnapshotID,
	})
	if err != nil {
		return nil, withStack(err)
	}
	return snap, nil
}
