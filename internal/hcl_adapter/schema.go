package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Pipelines []*Pipeline `hcl:"pipeline,block"`
	Remain    hcl.Body    `hcl:",remain"`
}

// Pipeline represents a `pipeline` block.
type Pipeline struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Modes       []*Mode  `hcl:"mode,block"`
	Solids      []*Solid `hcl:"solid,block"`
}

// Mode represents a `mode` block within a pipeline.
type Mode struct {
	Name        string      `hcl:"name,label"`
	Description string      `hcl:"description,optional"`
	Resources   []*Resource `hcl:"resource,block"`
}

// Resource represents a `resource` block within a mode.
type Resource struct {
	Name   string             `hcl:"name,label"`
	Config []*FieldDefinition `hcl:"config,block"`
}

// Solid represents a `solid` block within a pipeline.
type Solid struct {
	Name        string              `hcl:"name,label"`
	Description string              `hcl:"description,optional"`
	Compute     string              `hcl:"compute,optional"`
	Count       hcl.Expression      `hcl:"count,optional"`
	DependsOn   []string            `hcl:"depends_on,optional"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
	Config      []*FieldDefinition  `hcl:"config,block"`
}

// InputDefinition represents an `input` block within a solid.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	From        hcl.Expression `hcl:"from,optional"`
}

// OutputDefinition represents an `output` block within a solid.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
}

// FieldDefinition represents a `config` block on a solid or resource.
type FieldDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}
