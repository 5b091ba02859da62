package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/dag"
	"github.com/vk/planner/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var (
	_ config.Loader    = (*Loader)(nil)
	_ config.Converter = (*Converter)(nil)
)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL loading process. Paths may be files or
// directories; pipelines from every file are merged into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{Pipelines: make(map[string]*config.Pipeline)}

	hclFiles, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, p := range root.Pipelines {
			if _, dup := model.Pipelines[p.Name]; dup {
				return nil, nil, fmt.Errorf("pipeline '%s' is declared more than once (again in %s)", p.Name, file)
			}
			pipeline, err := l.translatePipeline(ctx, p)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			if err := validatePipeline(pipeline); err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Pipelines[pipeline.Name] = pipeline
		}
	}

	logger.Debug("HCL loading complete.", "pipelines", len(model.Pipelines))
	return model, NewConverter(), nil
}

// validatePipeline checks that every reference between solids resolves and
// that the solid dependency graph is acyclic.
func validatePipeline(p *config.Pipeline) error {
	g := dag.New()
	for _, s := range p.Solids {
		g.AddNode(s.Name)
	}

	for _, s := range p.Solids {
		for _, in := range s.Inputs {
			if in.From == nil {
				continue
			}
			upstream, ok := p.Solid(in.From.Solid)
			if !ok {
				return fmt.Errorf("in pipeline '%s': input '%s' of solid '%s' references unknown solid '%s'", p.Name, in.Name, s.Name, in.From.Solid)
			}
			if _, ok := upstream.Outputs[in.From.Output]; !ok {
				return fmt.Errorf("in pipeline '%s': input '%s' of solid '%s' references unknown output '%s' of solid '%s'", p.Name, in.Name, s.Name, in.From.Output, in.From.Solid)
			}
		}
		for _, dep := range s.DependsOn {
			if _, ok := p.Solid(dep); !ok {
				return fmt.Errorf("in pipeline '%s': solid '%s' depends on unknown solid '%s'", p.Name, s.Name, dep)
			}
		}
		for _, up := range s.Upstream() {
			if err := g.AddEdge(up, s.Name); err != nil {
				return fmt.Errorf("in pipeline '%s': %w", p.Name, err)
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return fmt.Errorf("in pipeline '%s': %w", p.Name, err)
	}
	return nil
}
