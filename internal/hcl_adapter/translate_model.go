// This file contains the logic for translating HCL schema structs (decoded by
// gohcl) into the format-agnostic configuration model defined in the config
// package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
)

// translatePipeline converts the HCL-specific pipeline schema into the agnostic model.
func (l *Loader) translatePipeline(ctx context.Context, p *Pipeline) (*config.Pipeline, error) {
	ctx, logger := ctxlog.With(ctx, "pipeline", p.Name)
	logger.Debug("Translating HCL pipeline to internal config model.", "modes", len(p.Modes), "solids", len(p.Solids))

	out := &config.Pipeline{
		Name:        p.Name,
		Description: p.Description,
	}

	seenModes := make(map[string]bool)
	for _, m := range p.Modes {
		if seenModes[m.Name] {
			return nil, fmt.Errorf("in pipeline '%s': mode '%s' is declared more than once", p.Name, m.Name)
		}
		seenModes[m.Name] = true

		mode, err := l.translateMode(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("in pipeline '%s': %w", p.Name, err)
		}
		out.Modes = append(out.Modes, mode)
	}
	if len(out.Modes) == 0 {
		logger.Debug("No mode declared. Adding the implicit default mode.")
		out.Modes = []*config.Mode{{Name: config.DefaultModeName}}
	}

	seenSolids := make(map[string]bool)
	for _, s := range p.Solids {
		if seenSolids[s.Name] {
			return nil, fmt.Errorf("in pipeline '%s': solid '%s' is declared more than once", p.Name, s.Name)
		}
		seenSolids[s.Name] = true

		solid, err := l.translateSolid(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("in pipeline '%s': %w", p.Name, err)
		}
		out.Solids = append(out.Solids, solid)
	}

	return out, nil
}

// translateMode converts the HCL-specific mode schema into the agnostic model.
func (l *Loader) translateMode(ctx context.Context, m *Mode) (*config.Mode, error) {
	mode := &config.Mode{
		Name:        m.Name,
		Description: m.Description,
	}
	seen := make(map[string]bool)
	for _, r := range m.Resources {
		if seen[r.Name] {
			return nil, fmt.Errorf("in mode '%s': resource '%s' is declared more than once", m.Name, r.Name)
		}
		seen[r.Name] = true

		fields, err := translateFields(ctx, r.Config, fmt.Sprintf("resource '%s'", r.Name))
		if err != nil {
			return nil, fmt.Errorf("in mode '%s': %w", m.Name, err)
		}
		mode.Resources = append(mode.Resources, &config.Resource{Name: r.Name, Config: fields})
	}
	return mode, nil
}

// translateSolid converts the HCL-specific solid schema into the agnostic model.
func (l *Loader) translateSolid(ctx context.Context, s *Solid) (*config.Solid, error) {
	ctx, logger := ctxlog.With(ctx, "solid", s.Name)
	logger.Debug("Translating HCL solid to internal config model.")

	solid := &config.Solid{
		Name:        s.Name,
		Description: s.Description,
		Compute:     s.Compute,
		Outputs:     make(map[string]*config.OutputDefinition),
		DependsOn:   s.DependsOn,
	}

	if isExprDefined(ctx, s.Count, "count") {
		logger.Debug("`count` attribute is defined. Marking solid as fanned out.")
		solid.Count = s.Count
	}

	seenInputs := make(map[string]bool)
	for _, in := range s.Inputs {
		if seenInputs[in.Name] {
			return nil, fmt.Errorf("in solid '%s': input '%s' is declared more than once", s.Name, in.Name)
		}
		seenInputs[in.Name] = true

		input, err := translateInput(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("in solid '%s': %w", s.Name, err)
		}
		solid.Inputs = append(solid.Inputs, input)
	}

	for _, out := range s.Outputs {
		if _, dup := solid.Outputs[out.Name]; dup {
			return nil, fmt.Errorf("in solid '%s': output '%s' is declared more than once", s.Name, out.Name)
		}
		parsedType, err := translateType(ctx, out.Type)
		if err != nil {
			return nil, fmt.Errorf("in solid '%s', output '%s': %w", s.Name, out.Name, err)
		}
		solid.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}

	fields, err := translateFields(ctx, s.Config, fmt.Sprintf("solid '%s'", s.Name))
	if err != nil {
		return nil, err
	}
	solid.Config = fields

	return solid, nil
}

// translateInput converts an `input` block, resolving its type, default and
// upstream reference.
func translateInput(ctx context.Context, in *InputDefinition) (*config.InputDefinition, error) {
	parsedType, err := translateType(ctx, in.Type)
	if err != nil {
		return nil, fmt.Errorf("input '%s': %w", in.Name, err)
	}

	def, err := translateDefault(ctx, in.Default, parsedType, fmt.Sprintf("input '%s'", in.Name))
	if err != nil {
		return nil, err
	}

	input := &config.InputDefinition{
		Name:        in.Name,
		Type:        parsedType,
		Description: in.Description,
		Default:     def,
	}

	if isExprDefined(ctx, in.From, "from") {
		ref, err := parseOutputRef(in.From)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %w", in.Name, err)
		}
		input.From = ref
	}

	return input, nil
}

// translateFields converts a list of `config` blocks into a keyed map.
func translateFields(ctx context.Context, blocks []*FieldDefinition, owner string) (map[string]*config.FieldDefinition, error) {
	fields := make(map[string]*config.FieldDefinition, len(blocks))
	for _, f := range blocks {
		if _, dup := fields[f.Name]; dup {
			return nil, fmt.Errorf("in %s: config field '%s' is declared more than once", owner, f.Name)
		}

		parsedType, err := translateType(ctx, f.Type)
		if err != nil {
			return nil, fmt.Errorf("in %s, config field '%s': %w", owner, f.Name, err)
		}

		def, err := translateDefault(ctx, f.Default, parsedType, fmt.Sprintf("config field '%s' of %s", f.Name, owner))
		if err != nil {
			return nil, err
		}

		fields[f.Name] = &config.FieldDefinition{
			Name:        f.Name,
			Type:        parsedType,
			Description: f.Description,
			Default:     def,
		}
	}
	return fields, nil
}
