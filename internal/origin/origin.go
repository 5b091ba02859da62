// Package origin describes where a pipeline definition lives, in a form that
// can be serialized and resolved again inside a worker process.
package origin

import (
	"context"
	"fmt"

	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
)

// KindFile is an origin backed by a definition file or directory.
const KindFile = "file"

// Origin is an opaque, serializable locator for a pipeline definition.
type Origin struct {
	Kind     string `json:"kind" msgpack:"kind"`
	Path     string `json:"path" msgpack:"path"`
	Pipeline string `json:"pipeline" msgpack:"pipeline"`
}

// File returns an origin for the named pipeline in a file or directory.
func File(path, pipeline string) Origin {
	return Origin{Kind: KindFile, Path: path, Pipeline: pipeline}
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%s#%s", o.Kind, o.Path, o.Pipeline)
}

// Validate checks that the origin can be resolved at all.
func (o Origin) Validate() error {
	switch {
	case o.Kind != KindFile:
		return fmt.Errorf("unsupported origin kind %q", o.Kind)
	case o.Path == "":
		return fmt.Errorf("origin path must not be empty")
	case o.Pipeline == "":
		return fmt.Errorf("origin pipeline must not be empty")
	}
	return nil
}

// Handle is a resolved origin: the loaded pipeline plus the converter for
// values typed against it.
type Handle struct {
	Origin    Origin
	Pipeline  *config.Pipeline
	Converter config.Converter
}

// Resolve loads the definition an origin points at.
func Resolve(ctx context.Context, o Origin, loader config.Loader) (*Handle, error) {
	if err := o.Validate(); err != nil {
		return nil, &DefinitionLoadError{Origin: o, Err: err}
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving pipeline origin.", "origin", o.String())

	model, conv, err := loader.Load(ctx, o.Path)
	if err != nil {
		return nil, &DefinitionLoadError{Origin: o, Err: err}
	}

	p, ok := model.Pipelines[o.Pipeline]
	if !ok {
		return nil, &PipelineNotFoundError{Pipeline: o.Pipeline, Path: o.Path}
	}
	return &Handle{Origin: o, Pipeline: p, Converter: conv}, nil
}
