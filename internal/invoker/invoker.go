// Package invoker is the caller-facing API for out-of-process plan
// computation. It builds the request, hands it to a transport and turns the
// response into either a snapshot or an error.
package invoker

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/origin"
	"github.com/vk/planner/internal/plan"
	"github.com/vk/planner/internal/selection"
	"github.com/vk/planner/internal/transport"
	"github.com/vk/planner/internal/wire"
)

// Invoker computes execution plans through a transport.
type Invoker struct {
	transport transport.Transport
	newID     func() string
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRequestIDs overrides how request ids are generated.
func WithRequestIDs(fn func() string) Option {
	return func(i *Invoker) { i.newID = fn }
}

// New creates an Invoker that dispatches through t.
func New(t transport.Transport, opts ...Option) *Invoker {
	i := &Invoker{transport: t}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GetExecutionPlan asks a worker for the plan of the pipeline at o. An empty
// mode selects the pipeline's default mode.
//
// Worker-side failures are returned as *RemoteComputationError. Transport
// errors (*transport.WorkerProcessError, *transport.TransportUnavailableError)
// are returned unchanged.
func (i *Invoker) GetExecutionPlan(ctx context.Context, o origin.Origin, runConfig map[string]any, mode string, sel selection.Request, snapshotID string) (*plan.Snapshot, error) {
	req := wire.NewRequest(o, runConfig, mode, sel, snapshotID)
	if i.newID != nil {
		req.RequestID = i.newID()
	}

	ctx, logger := ctxlog.With(ctx, "request_id", req.RequestID, "pipeline", o.Pipeline, "mode", mode)
	logger.Debug("Requesting execution plan.", "origin", o.String(), "selection", sel.Kind().String())

	resp, err := i.transport.Invoke(ctx, req)
	if err != nil {
		logger.Debug("Transport failed.", "error", err)
		return nil, err
	}

	if resp.Failure != nil {
		logger.Debug("Worker reported a failure.", "class", resp.Failure.ClassName)
		return nil, &RemoteComputationError{
			Message:    resp.Failure.Message,
			StackTrace: resp.Failure.StackTrace,
			ClassName:  resp.Failure.ClassName,
			RequestID:  resp.RequestID,
		}
	}
	if resp.Snapshot == nil {
		return nil, errors.New("worker response carries no snapshot")
	}
	if err := resp.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("worker returned an inconsistent snapshot: %w", err)
	}

	logger.Debug("Received execution plan.", "steps", len(resp.Snapshot.Steps), "to_execute", len(resp.Snapshot.StepKeysToExecute))
	return resp.Snapshot, nil
}
