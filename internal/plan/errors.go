package plan

import "fmt"

// ModeNotFoundError is returned when the requested mode is not declared by
// the pipeline. Callers match on its message, so the format is fixed.
type ModeNotFoundError struct {
	Mode     string
	Pipeline string
}

func (e *ModeNotFoundError) Error() string {
	return fmt.Sprintf("Could not find mode %s in pipeline %s", e.Mode, e.Pipeline)
}

// ClassName is the classification tag carried across the worker boundary.
func (e *ModeNotFoundError) ClassName() string { return "ModeNotFoundError" }
