// internal/nodeid/step.go
package nodeid

import "fmt"

// ComputeKind is the step kind produced by a solid's compute function.
const ComputeKind = "compute"

// StepAddress builds the address of a solid's step. An index of -1 marks a
// solid that does not fan out.
func StepAddress(solid string, index int, kind string) *Address {
	return &Address{Path: []PathSegment{
		NewPathSegmentWithIndex(solid, index),
		NewPathSegment(kind),
	}}
}

// StepKey returns the canonical compute step key for a solid instance, e.g.
// `do_input.compute` or `fan[2].compute`.
func StepKey(solid string, index int) string {
	return StepAddress(solid, index, ComputeKind).String()
}

// StepRef is the decoded form of a step key.
type StepRef struct {
	Solid string
	Index int
	Kind  string
}

// ParseStepKey splits a step key into its solid, fan-out index and kind.
func ParseStepKey(key string) (StepRef, error) {
	addr, err := Parse(key)
	if err != nil {
		return StepRef{}, err
	}
	if len(addr.Path) != 2 {
		return StepRef{}, fmt.Errorf("step key %q must have the form <solid>.<kind>", key)
	}
	head, _ := addr.Head()
	tail, _ := addr.Tail()
	if tail.HasIndex() {
		return StepRef{}, fmt.Errorf("step key %q: kind segment cannot be indexed", key)
	}
	return StepRef{Solid: head.Name, Index: head.Index, Kind: tail.Name}, nil
}

// SolidOf returns the solid name a step key belongs to, or the empty string if
// the key is malformed.
func SolidOf(key string) string {
	ref, err := ParseStepKey(key)
	if err != nil {
		return ""
	}
	return ref.Solid
}
