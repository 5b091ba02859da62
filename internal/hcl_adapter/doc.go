// Package hcl_adapter is the HCL implementation of config.Loader and
// config.Converter. It parses `pipeline` blocks from .hcl files, resolves
// type expressions into cty types, and validates the references between
// solids before handing the format-agnostic model to the planner.
package hcl_adapter
