// Package wire defines the request and response envelopes exchanged between
// the planner and its workers, and the msgpack codec that carries them.
package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/planner/internal/origin"
	"github.com/vk/planner/internal/plan"
	"github.com/vk/planner/internal/selection"
)

// ExitCodeFailure is the exit code an ephemeral worker uses after it has
// written a serialized failure. Any other non-zero code means the worker
// crashed before responding.
const ExitCodeFailure = 3

// Names shared by the persistent service bindings.
const (
	ServiceName                 = "planner.v1.PlanWorker"
	MethodExecutionPlanSnapshot = "/planner.v1.PlanWorker/ExecutionPlanSnapshot"
	EventExecutionPlan          = "execution_plan"
	EventExecutionPlanResult    = "execution_plan_result"
)

// Request asks a worker for an execution plan snapshot.
type Request struct {
	RequestID          string         `json:"request_id" msgpack:"request_id"`
	Origin             origin.Origin  `json:"origin" msgpack:"origin"`
	RunConfig          map[string]any `json:"run_config" msgpack:"run_config"`
	Mode               string         `json:"mode,omitempty" msgpack:"mode,omitempty"`
	PipelineSnapshotID string         `json:"pipeline_snapshot_id,omitempty" msgpack:"pipeline_snapshot_id,omitempty"`
	SolidSelection     []string       `json:"solid_selection,omitempty" msgpack:"solid_selection,omitempty"`
	StepKeysToExecute  []string       `json:"step_keys_to_execute,omitempty" msgpack:"step_keys_to_execute,omitempty"`
}

// NewRequest builds a request with a fresh request id.
func NewRequest(o origin.Origin, runConfig map[string]any, mode string, sel selection.Request, snapshotID string) *Request {
	if runConfig == nil {
		runConfig = map[string]any{}
	}
	return &Request{
		RequestID:          uuid.NewString(),
		Origin:             o,
		RunConfig:          runConfig,
		Mode:               mode,
		PipelineSnapshotID: snapshotID,
		SolidSelection:     sel.Queries(),
		StepKeysToExecute:  sel.Keys(),
	}
}

// Selection decodes the two selection fields into a selection.Request.
func (r *Request) Selection() (selection.Request, error) {
	return selection.New(r.SolidSelection, r.StepKeysToExecute)
}

// EnsureID assigns a request id if the caller left it empty.
func (r *Request) EnsureID() string {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	return r.RequestID
}

// Response carries exactly one of a snapshot or a failure.
type Response struct {
	RequestID string         `json:"request_id" msgpack:"request_id"`
	Snapshot  *plan.Snapshot `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
	Failure   *Failure       `json:"failure,omitempty" msgpack:"failure,omitempty"`
}

// Validate checks that the response holds exactly one outcome.
func (r *Response) Validate() error {
	switch {
	case r.Snapshot != nil && r.Failure != nil:
		return errors.New("response carries both a snapshot and a failure")
	case r.Snapshot == nil && r.Failure == nil:
		return errors.New("response carries neither a snapshot nor a failure")
	}
	return nil
}

// Failure is a worker-side error flattened for transport.
type Failure struct {
	Message    string `json:"message" msgpack:"message"`
	StackTrace string `json:"stack_trace" msgpack:"stack_trace"`
	ClassName  string `json:"class_name" msgpack:"class_name"`
	Cause      string `json:"cause,omitempty" msgpack:"cause,omitempty"`
}

// DefaultClassName tags failures from errors that do not classify themselves.
const DefaultClassName = "Error"

// FailureFromError flattens err. The class name comes from the first error in
// the chain that reports one.
func FailureFromError(err error, stack string) *Failure {
	f := &Failure{
		Message:    err.Error(),
		StackTrace: stack,
		ClassName:  DefaultClassName,
	}
	var classified interface{ ClassName() string }
	if errors.As(err, &classified) {
		f.ClassName = classified.ClassName()
	}
	if cause := errors.Unwrap(err); cause != nil {
		f.Cause = cause.Error()
	}
	return f
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.ClassName, f.Message)
}
