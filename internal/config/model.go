package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// DefaultModeName is the mode a pipeline gets when it declares none.
const DefaultModeName = "default"

// Model is the unified, format-agnostic representation of every pipeline
// found at a location.
type Model struct {
	Pipelines map[string]*Pipeline
}

// Pipeline represents a workflow definition: a graph of solids plus the
// modes it can run under.
type Pipeline struct {
	Name        string
	Description string
	Modes       []*Mode  // declaration order; never empty after loading
	Solids      []*Solid // declaration order
}

// Mode is a named execution profile with its resource configuration schema.
type Mode struct {
	Name        string
	Description string
	Resources   []*Resource
}

// Resource declares the config fields a mode's resource accepts.
type Resource struct {
	Name   string
	Config map[string]*FieldDefinition
}

// Solid is a computation node of the pipeline.
type Solid struct {
	Name        string
	Description string
	// Compute names the compute function. A solid without one yields no step.
	Compute   string
	Inputs    []*InputDefinition // declaration order
	Outputs   map[string]*OutputDefinition
	Config    map[string]*FieldDefinition
	DependsOn []string
	// Count is the fan-out expression, nil when the solid does not fan out.
	Count hcl.Expression
}

// InputDefinition defines a single input of a solid.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	// From is set when the input is wired to another solid's output.
	From *OutputRef
}

// OutputRef points at a solid's output.
type OutputRef struct {
	Solid  string
	Output string
}

// OutputDefinition defines a single output value of a solid.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}

// FieldDefinition defines a typed config field. Fields without a default are
// required.
type FieldDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
}

// Required reports whether run config must supply the field.
func (f *FieldDefinition) Required() bool {
	return f.Default == nil
}

// Mode returns the mode with the given name.
func (p *Pipeline) Mode(name string) (*Mode, bool) {
	for _, m := range p.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// DefaultMode returns the name of the first declared mode.
func (p *Pipeline) DefaultMode() string {
	if len(p.Modes) == 0 {
		return DefaultModeName
	}
	return p.Modes[0].Name
}

// Solid returns the solid with the given name.
func (p *Pipeline) Solid(name string) (*Solid, bool) {
	for _, s := range p.Solids {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Input returns the input with the given name.
func (s *Solid) Input(name string) (*InputDefinition, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return nil, false
}

// Upstream returns the names of the solids this solid depends on, data
// dependencies first, then explicit ones, without duplicates.
func (s *Solid) Upstream() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, in := range s.Inputs {
		if in.From != nil {
			add(in.From.Solid)
		}
	}
	for _, dep := range s.DependsOn {
		add(dep)
	}
	return out
}

// Resource returns the resource with the given name.
func (m *Mode) Resource(name string) (*Resource, bool) {
	for _, r := range m.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}
