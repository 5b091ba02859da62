package selection

import (
	"fmt"
	"strings"

	"github.com/vk/planner/internal/dag"
	"github.com/vk/planner/internal/nodeid"
)

type options struct {
	required func(step, dep string) bool
	entityOf func(key string) string
	declared map[string]bool
}

// Option configures Resolve.
type Option func(*options)

// WithRequiredEdge decides which dependency edges an entity selection is
// closed over. The default follows every edge.
func WithRequiredEdge(fn func(step, dep string) bool) Option {
	return func(o *options) { o.required = fn }
}

// WithEntityOf maps a step key to the name entity queries match against. The
// default is the solid segment of the key.
func WithEntityOf(fn func(key string) string) Option {
	return func(o *options) { o.entityOf = fn }
}

// WithDeclaredEntities names entities that exist even when no step belongs to
// them. Queries for such entities fail with a reason of their own rather than
// as unknown names.
func WithDeclaredEntities(names ...string) Option {
	return func(o *options) {
		o.declared = make(map[string]bool, len(names))
		for _, n := range names {
			o.declared[n] = true
		}
	}
}

// Resolve returns the ordered step keys selected by req from the graph.
//
// With no selection every step is returned in topological order. Explicit
// step keys are checked for existence and returned as given, minus
// duplicates. Entity queries select every step of the named solids, closed
// over required upstream dependencies, in topological order.
func Resolve(g *dag.Graph, req Request, opts ...Option) ([]string, error) {
	o := options{
		required: func(string, string) bool { return true },
		entityOf: nodeid.SolidOf,
	}
	for _, opt := range opts {
		opt(&o)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to order steps: %w", err)
	}

	switch req.Kind() {
	case KindStepKeys:
		keys := make([]string, 0, len(req.items))
		seen := make(map[string]bool, len(req.items))
		for _, k := range req.items {
			if !g.Has(k) {
				return nil, &UnknownStepKeyError{Key: k}
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		return keys, nil

	case KindEntities:
		selected, err := selectEntities(g, order, req.Queries(), o)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(selected))
		for _, k := range order {
			if selected[k] {
				out = append(out, k)
			}
		}
		return out, nil

	default:
		return order, nil
	}
}

func selectEntities(g *dag.Graph, order, queries []string, o options) (map[string]bool, error) {
	byEntity := make(map[string][]string)
	for _, k := range order {
		e := o.entityOf(k)
		byEntity[e] = append(byEntity[e], k)
	}

	selected := make(map[string]bool)
	var unknown, stepless []string
	for _, raw := range queries {
		q, err := parseQuery(raw)
		if err != nil {
			return nil, &InvalidSubsetError{Queries: queries, Reason: err.Error()}
		}
		steps, ok := byEntity[q.name]
		if !ok {
			if o.declared[q.name] {
				stepless = append(stepless, q.name)
			} else {
				unknown = append(unknown, raw)
			}
			continue
		}
		for _, s := range steps {
			selected[s] = true
		}
		if q.up != 0 {
			for _, s := range g.Ancestors(q.up, steps...) {
				selected[s] = true
			}
		}
		if q.down != 0 {
			for _, s := range g.Descendants(q.down, steps...) {
				selected[s] = true
			}
		}
	}
	if len(unknown) > 0 {
		return nil, &InvalidSubsetError{Queries: unknown}
	}
	if len(stepless) > 0 {
		return nil, &InvalidSubsetError{
			Queries: stepless,
			Reason:  "no steps are produced by " + strings.Join(stepless, ", "),
		}
	}

	// Close over required upstream dependencies.
	queue := make([]string, 0, len(selected))
	for _, k := range order {
		if selected[k] {
			queue = append(queue, k)
		}
	}
	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]
		deps, err := g.Dependencies(step)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if selected[dep] || !o.required(step, dep) {
				continue
			}
			selected[dep] = true
			queue = append(queue, dep)
		}
	}

	return selected, nil
}
