package selection

import (
	"fmt"
	"strings"
)

// UnknownStepKeyError reports the first explicit step key missing from the plan.
type UnknownStepKeyError struct {
	Key string
}

func (e *UnknownStepKeyError) Error() string {
	return fmt.Sprintf("Execution plan does not contain step: %s", e.Key)
}

// ClassName is the classification tag carried across the worker boundary.
func (e *UnknownStepKeyError) ClassName() string { return "UnknownStepKeyError" }

// InvalidSubsetError reports a solid selection that matches nothing, or a
// query that cannot be parsed.
type InvalidSubsetError struct {
	Queries []string
	Reason  string
}

func (e *InvalidSubsetError) Error() string {
	msg := fmt.Sprintf("No qualified solids to execute found for solid_selection [%s]", strings.Join(e.Queries, ", "))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ClassName is the classification tag carried across the worker boundary.
func (e *InvalidSubsetError) ClassName() string { return "InvalidSubsetError" }
