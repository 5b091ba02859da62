package plan

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/dag"
	"github.com/vk/planner/internal/nodeid"
	"github.com/vk/planner/internal/runconfig"
	"github.com/vk/planner/internal/selection"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Input is everything a single plan computation needs.
type Input struct {
	Pipeline  *config.Pipeline
	RunConfig runconfig.RunConfig
	// Mode is the mode to plan for. Empty means the pipeline's default mode.
	Mode       string
	Selection  selection.Request
	SnapshotID string
}

// DefaultMaxInstances bounds the number of steps a single solid may fan out to.
const DefaultMaxInstances = 1024

// Builder turns a pipeline definition into a Snapshot. A Builder holds no
// per-request state and may be shared.
type Builder struct {
	conv         config.Converter
	maxInstances int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxInstances overrides DefaultMaxInstances. Values below 1 are ignored.
func WithMaxInstances(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxInstances = n
		}
	}
}

// NewBuilder creates a Builder that converts run config values with conv.
func NewBuilder(conv config.Converter, opts ...BuilderOption) *Builder {
	b := &Builder{conv: conv, maxInstances: DefaultMaxInstances}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves the mode, expands solids into steps, resolves the selection,
// validates the run config and returns the resulting snapshot.
func (b *Builder) Build(ctx context.Context, in Input) (*Snapshot, error) {
	p := in.Pipeline
	if p == nil {
		return nil, fmt.Errorf("no pipeline to plan")
	}
	cfg := in.RunConfig
	if cfg == nil {
		cfg = runconfig.RunConfig{}
	}

	modeName := in.Mode
	if modeName == "" {
		modeName = p.DefaultMode()
	}
	ctx, logger := ctxlog.With(ctx, "pipeline", p.Name, "mode", modeName)
	logger.Debug("Building execution plan.", "selection", in.Selection.Kind().String())

	mode, ok := p.Mode(modeName)
	if !ok {
		return nil, &ModeNotFoundError{Mode: modeName, Pipeline: p.Name}
	}

	instances, countViolations := b.expandCounts(ctx, p, cfg, modeName)
	if len(countViolations) > 0 {
		all := runconfig.Validate(cfg, runconfig.Schema{Pipeline: p, Mode: mode}, b.conv)
		all = append(all, countViolations...)
		runconfig.SortViolations(all)
		return nil, &runconfig.InvalidConfigError{Pipeline: p.Name, Violations: all}
	}

	g, err := buildStepGraph(p, instances)
	if err != nil {
		return nil, fmt.Errorf("failed to build step graph for pipeline %s: %w", p.Name, err)
	}

	required := requiredUpstreams(p, cfg)
	solids := make([]string, 0, len(p.Solids))
	for _, s := range p.Solids {
		solids = append(solids, s.Name)
	}
	keys, err := selection.Resolve(g, in.Selection,
		selection.WithRequiredEdge(func(step, dep string) bool {
			return required[nodeid.SolidOf(step)][nodeid.SolidOf(dep)]
		}),
		selection.WithDeclaredEntities(solids...),
	)
	if err != nil {
		return nil, err
	}

	schema := runconfig.Schema{Pipeline: p, Mode: mode}
	stepGraph := g
	if in.Selection.Kind() == selection.KindEntities {
		schema.Selected = make(map[string]bool)
		for _, k := range keys {
			schema.Selected[nodeid.SolidOf(k)] = true
		}
		stepGraph = g.Subgraph(keys)
	}
	if violations := runconfig.Validate(cfg, schema, b.conv); len(violations) > 0 {
		return nil, &runconfig.InvalidConfigError{Pipeline: p.Name, Violations: violations}
	}

	snap, err := snapshotOf(stepGraph)
	if err != nil {
		return nil, err
	}
	snap.Pipeline = p.Name
	snap.Mode = modeName
	snap.PipelineSnapshotID = in.SnapshotID
	snap.StepKeysToExecute = keys

	logger.Debug("Execution plan built.", "steps", len(snap.Steps), "steps_to_execute", len(keys))
	return snap, nil
}

// expandCounts returns the instance indices of every solid with a compute
// function. A solid without `count` has the single index -1.
func (b *Builder) expandCounts(ctx context.Context, p *config.Pipeline, cfg runconfig.RunConfig, mode string) (map[string][]int, []runconfig.Violation) {
	logger := ctxlog.FromContext(ctx)
	out := make(map[string][]int, len(p.Solids))
	var violations []runconfig.Violation

	var evalCtx *hcl.EvalContext
	for _, s := range p.Solids {
		if s.Compute == "" {
			continue
		}
		if s.Count == nil {
			out[s.Name] = []int{-1}
			continue
		}

		if evalCtx == nil {
			fanout, err := b.conv.ToCtyValue(cfg.Fanout())
			if err != nil {
				violations = append(violations, runconfig.Violation{Path: runconfig.SectionFanout, Message: err.Error()})
				return out, violations
			}
			evalCtx = &hcl.EvalContext{Variables: map[string]cty.Value{
				"config": fanout,
				"mode":   cty.StringVal(mode),
			}}
		}

		n, err := evalCount(s.Count, evalCtx, b.maxInstances)
		if err != nil {
			violations = append(violations, runconfig.Violation{
				Path:    runconfig.SectionFanout + "." + s.Name,
				Message: err.Error(),
			})
			continue
		}
		logger.Debug("Expanded solid count.", "solid", s.Name, "count", n)

		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		out[s.Name] = indices
	}
	return out, violations
}

func evalCount(expr hcl.Expression, evalCtx *hcl.EvalContext, limit int) (int, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return 0, fmt.Errorf("count could not be evaluated: %s", diags.Error())
	}
	if !val.IsWhollyKnown() || val.IsNull() {
		return 0, fmt.Errorf("count must be a known, non-null number")
	}
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("count must be a number: %w", err)
	}
	var n int
	if err := gocty.FromCtyValue(num, &n); err != nil {
		return 0, fmt.Errorf("count must be a whole number: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative, got %d", n)
	}
	if n > limit {
		return 0, fmt.Errorf("count must not exceed %d, got %d", limit, n)
	}
	return n, nil
}

// buildStepGraph adds one node per solid instance in declaration order and
// connects every instance to every instance of its effective upstream solids.
func buildStepGraph(p *config.Pipeline, instances map[string][]int) (*dag.Graph, error) {
	g := dag.New()
	for _, s := range p.Solids {
		for _, idx := range instances[s.Name] {
			g.AddNode(nodeid.StepKey(s.Name, idx))
		}
	}

	for _, s := range p.Solids {
		if s.Compute == "" {
			continue
		}
		for _, up := range effectiveUpstreams(p, s) {
			for _, upIdx := range instances[up] {
				for _, idx := range instances[s.Name] {
					if err := g.AddEdge(nodeid.StepKey(up, upIdx), nodeid.StepKey(s.Name, idx)); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// effectiveUpstreams resolves a solid's upstreams to solids that yield
// steps, looking through solids without a compute function.
func effectiveUpstreams(p *config.Pipeline, s *config.Solid) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(names []string)
	walk = func(names []string) {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			up, ok := p.Solid(name)
			if !ok {
				continue
			}
			if up.Compute != "" {
				out = append(out, name)
				continue
			}
			walk(up.Upstream())
		}
	}
	walk(s.Upstream())
	return out
}

// requiredUpstreams maps each solid to the step-yielding solids that must run
// to feed its inputs. Inputs with a default or a run config value need
// nothing, and control dependencies are never required.
func requiredUpstreams(p *config.Pipeline, cfg runconfig.RunConfig) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(p.Solids))

	var collect func(s *config.Solid, into map[string]bool, visiting map[string]bool)
	collect = func(s *config.Solid, into map[string]bool, visiting map[string]bool) {
		if visiting[s.Name] {
			return
		}
		visiting[s.Name] = true
		for _, in := range s.Inputs {
			if in.From == nil || in.Default != nil {
				continue
			}
			if _, supplied := cfg.InputValue(s.Name, in.Name); supplied {
				continue
			}
			up, ok := p.Solid(in.From.Solid)
			if !ok {
				continue
			}
			if up.Compute != "" {
				into[up.Name] = true
				continue
			}
			collect(up, into, visiting)
		}
	}

	for _, s := range p.Solids {
		req := make(map[string]bool)
		collect(s, req, make(map[string]bool))
		out[s.Name] = req
	}
	return out
}

func snapshotOf(g *dag.Graph) (*Snapshot, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Steps: make([]StepSnapshot, 0, len(order))}
	for _, key := range order {
		ref, err := nodeid.ParseStepKey(key)
		if err != nil {
			return nil, err
		}
		deps, err := g.Dependencies(key)
		if err != nil {
			return nil, err
		}
		snap.Steps = append(snap.Steps, StepSnapshot{
			Key:          key,
			Solid:        ref.Solid,
			Kind:         ref.Kind,
			Dependencies: deps,
		})
	}
	return snap, nil
}
