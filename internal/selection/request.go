// Package selection narrows a full step graph to the steps a caller asked to
// execute, either by solid queries or by an explicit list of step keys.
package selection

import "errors"

// Kind tags the variant held by a Request.
type Kind int

const (
	// KindNone selects the whole plan.
	KindNone Kind = iota
	// KindEntities selects solids by query, closed over required upstreams.
	KindEntities
	// KindStepKeys selects literal step keys with no expansion.
	KindStepKeys
)

func (k Kind) String() string {
	switch k {
	case KindEntities:
		return "solid_selection"
	case KindStepKeys:
		return "step_keys_to_execute"
	default:
		return "none"
	}
}

// ErrConflictingSelection is returned when both a solid selection and
// explicit step keys are supplied.
var ErrConflictingSelection = errors.New("solid_selection and step_keys_to_execute are mutually exclusive")

// Request is a selection request. The zero value selects everything.
type Request struct {
	kind  Kind
	items []string
}

// None returns a request selecting the full plan.
func None() Request { return Request{} }

// Entities returns a request selecting solids by query. An empty list selects
// the full plan.
func Entities(queries ...string) Request {
	if len(queries) == 0 {
		return None()
	}
	return Request{kind: KindEntities, items: append([]string(nil), queries...)}
}

// StepKeys returns a request selecting literal step keys. An empty list
// selects the full plan.
func StepKeys(keys ...string) Request {
	if len(keys) == 0 {
		return None()
	}
	return Request{kind: KindStepKeys, items: append([]string(nil), keys...)}
}

// New builds a request from the two optional wire fields, rejecting requests
// that set both.
func New(solidSelection, stepKeys []string) (Request, error) {
	switch {
	case len(solidSelection) > 0 && len(stepKeys) > 0:
		return Request{}, ErrConflictingSelection
	case len(solidSelection) > 0:
		return Entities(solidSelection...), nil
	default:
		return StepKeys(stepKeys...), nil
	}
}

// Kind reports which variant the request holds.
func (r Request) Kind() Kind { return r.kind }

// Queries returns the solid queries of an entity selection.
func (r Request) Queries() []string {
	if r.kind != KindEntities {
		return nil
	}
	return append([]string(nil), r.items...)
}

// Keys returns the step keys of an explicit selection.
func (r Request) Keys() []string {
	if r.kind != KindStepKeys {
		return nil
	}
	return append([]string(nil), r.items...)
}
