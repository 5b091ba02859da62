package origin

import "fmt"

// PipelineNotFoundError is returned when the definition loads but does not
// declare the requested pipeline.
type PipelineNotFoundError struct {
	Pipeline string
	Path     string
}

func (e *PipelineNotFoundError) Error() string {
	return fmt.Sprintf("Could not find pipeline %s in %s", e.Pipeline, e.Path)
}

// ClassName is the classification tag carried across the worker boundary.
func (e *PipelineNotFoundError) ClassName() string { return "PipelineNotFoundError" }

// DefinitionLoadError wraps a failure to read or parse a definition.
type DefinitionLoadError struct {
	Origin Origin
	Err    error
}

func (e *DefinitionLoadError) Error() string {
	return fmt.Sprintf("failed to load pipeline definition from %s: %v", e.Origin.Path, e.Err)
}

func (e *DefinitionLoadError) Unwrap() error { return e.Err }

// ClassName is the classification tag carried across the worker boundary.
func (e *DefinitionLoadError) ClassName() string { return "DefinitionLoadError" }
