package runconfig

import (
	"fmt"

	"github.com/vk/planner/internal/config"
)

// Schema is what a run configuration is validated against.
type Schema struct {
	Pipeline *config.Pipeline
	Mode     *config.Mode
	// Selected restricts required-input checks to these solids. Nil means
	// every solid in the pipeline.
	Selected map[string]bool
}

// Validate checks the run configuration against the schema and returns every
// violation found, sorted by path. An empty result means the config is valid.
func Validate(c RunConfig, s Schema, conv config.Converter) []Violation {
	v := &validator{cfg: c, schema: s, conv: conv}
	v.run()
	SortViolations(v.out)
	return v.out
}

type validator struct {
	cfg      RunConfig
	schema   Schema
	conv     config.Converter
	selected map[string]bool
	out      []Violation
}

func (v *validator) add(path, format string, args ...any) {
	v.out = append(v.out, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) run() {
	v.selected = v.schema.Selected
	if v.selected == nil {
		v.selected = make(map[string]bool, len(v.schema.Pipeline.Solids))
		for _, s := range v.schema.Pipeline.Solids {
			v.selected[s.Name] = true
		}
	}

	for key, val := range v.cfg {
		switch key {
		case SectionSolids, SectionResources, SectionFanout:
			if _, ok := val.(map[string]any); !ok && val != nil {
				v.add(key, "expected a mapping, got %T", val)
			}
		case SectionExecution, SectionLoggers:
		default:
			v.add(key, "unknown top-level section")
		}
	}

	v.checkSolids()
	v.checkRequiredInputs()
	v.checkResources()
}

func (v *validator) checkSolids() {
	p := v.schema.Pipeline
	for name, raw := range v.cfg.Section(SectionSolids) {
		path := SectionSolids + "." + name
		solid, ok := p.Solid(name)
		if !ok {
			v.add(path, "unknown solid in pipeline %s", p.Name)
			continue
		}
		entry, ok := raw.(map[string]any)
		if !ok {
			if raw != nil {
				v.add(path, "expected a mapping, got %T", raw)
			}
			continue
		}
		for key, sub := range entry {
			switch key {
			case "inputs":
				v.checkInputs(path+".inputs", solid, sub)
			case "config":
				v.checkFields(path+".config", solid.Config, sub)
			default:
				v.add(path+"."+key, "unknown key, expected inputs or config")
			}
		}
	}

	for _, solid := range p.Solids {
		if v.selected[solid.Name] {
			v.checkRequiredFields(SectionSolids+"."+solid.Name+".config", solid.Config, v.cfg.SolidConfig(solid.Name))
		}
	}
}

func (v *validator) checkInputs(path string, solid *config.Solid, raw any) {
	inputs, ok := raw.(map[string]any)
	if !ok {
		if raw != nil {
			v.add(path, "expected a mapping, got %T", raw)
		}
		return
	}
	for name, entry := range inputs {
		inPath := path + "." + name
		def, ok := solid.Input(name)
		if !ok {
			v.add(inPath, "unknown input of solid %s", solid.Name)
			continue
		}
		m, ok := entry.(map[string]any)
		if !ok {
			v.add(inPath, "expected a mapping with a 'value' key")
			continue
		}
		val, ok := m["value"]
		if !ok {
			v.add(inPath, "expected a mapping with a 'value' key")
			continue
		}
		if _, err := v.conv.Convert(val, def.Type); err != nil {
			v.add(inPath+".value", "%s", err)
		}
	}
}

func (v *validator) checkFields(path string, fields map[string]*config.FieldDefinition, raw any) {
	values, ok := raw.(map[string]any)
	if !ok {
		if raw != nil {
			v.add(path, "expected a mapping, got %T", raw)
		}
		return
	}
	for name, val := range values {
		def, ok := fields[name]
		if !ok {
			v.add(path+"."+name, "unknown config field")
			continue
		}
		if _, err := v.conv.Convert(val, def.Type); err != nil {
			v.add(path+"."+name, "%s", err)
		}
	}
}

func (v *validator) checkRequiredFields(path string, fields map[string]*config.FieldDefinition, values map[string]any) {
	for name, def := range fields {
		if !def.Required() {
			continue
		}
		if _, ok := values[name]; !ok {
			v.add(path+"."+name, "missing required config field")
		}
	}
}

// checkRequiredInputs walks the selected solids. An input is satisfied by a
// default, a supplied value, or a selected upstream solid. Upstream solids
// without a compute function produce nothing themselves, so their inputs are
// checked in turn.
func (v *validator) checkRequiredInputs() {
	p := v.schema.Pipeline
	selected := v.selected

	visited := make(map[string]bool)
	var visit func(s *config.Solid)
	visit = func(s *config.Solid) {
		if visited[s.Name] {
			return
		}
		visited[s.Name] = true

		for _, in := range s.Inputs {
			if in.Default != nil {
				continue
			}
			if _, ok := v.cfg.InputValue(s.Name, in.Name); ok {
				continue
			}
			if in.From != nil {
				if selected[in.From.Solid] {
					continue
				}
				if up, ok := p.Solid(in.From.Solid); ok && up.Compute == "" {
					visit(up)
					continue
				}
			}
			v.add(fmt.Sprintf("%s.%s.inputs.%s", SectionSolids, s.Name, in.Name), "missing required input")
		}
	}

	for _, s := range p.Solids {
		if selected[s.Name] {
			visit(s)
		}
	}
}

func (v *validator) checkResources() {
	mode := v.schema.Mode
	if mode == nil {
		return
	}
	supplied := v.cfg.Section(SectionResources)
	for name, raw := range supplied {
		path := SectionResources + "." + name
		res, ok := mode.Resource(name)
		if !ok {
			v.add(path, "unknown resource for mode %s", mode.Name)
			continue
		}
		entry, ok := raw.(map[string]any)
		if !ok {
			if raw != nil {
				v.add(path, "expected a mapping, got %T", raw)
			}
			continue
		}
		for key, sub := range entry {
			if key != "config" {
				v.add(path+"."+key, "unknown key, expected config")
				continue
			}
			v.checkFields(path+".config", res.Config, sub)
		}
	}
	for _, res := range mode.Resources {
		v.checkRequiredFields(SectionResources+"."+res.Name+".config", res.Config, v.cfg.ResourceConfig(res.Name))
	}
}
