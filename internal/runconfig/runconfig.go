// Package runconfig holds the run configuration supplied with a plan request:
// a nested mapping of input values, config fields, fan-out counts and
// pass-through sections, plus its validation against a pipeline definition.
package runconfig

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level sections of a run configuration.
const (
	SectionSolids    = "solids"
	SectionResources = "resources"
	SectionFanout    = "fanout"
	SectionExecution = "execution"
	SectionLoggers   = "loggers"
)

// RunConfig is a normalized run configuration document. Nested mappings are
// always map[string]any and integers are always int64.
type RunConfig map[string]any

// FromMap normalizes an arbitrary decoded document into a RunConfig. A nil map
// yields an empty config.
func FromMap(m map[string]any) RunConfig {
	if m == nil {
		return RunConfig{}
	}
	return RunConfig(Normalize(m).(map[string]any))
}

// Parse decodes a YAML or JSON document.
func Parse(data []byte) (RunConfig, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}
	if raw == nil {
		return RunConfig{}, nil
	}
	m, ok := Normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("run config must be a mapping, got %T", raw)
	}
	return RunConfig(m), nil
}

// LoadFile reads and decodes a run configuration file.
func LoadFile(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Normalize rewrites a decoded value so every mapping is map[string]any and
// every integer kind is int64. Unsigned values beyond int64 become float64 so
// they stay positive. Decoders (yaml, msgpack, json) disagree on
// both, and the rest of the planner relies on a single shape.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case RunConfig:
		return Normalize(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Normalize(e)
		}
		return out
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint:
		return Normalize(uint64(val))
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// Section returns a top-level section as a mapping, or nil when it is absent
// or not a mapping.
func (c RunConfig) Section(name string) map[string]any {
	m, _ := c[name].(map[string]any)
	return m
}

// Fanout returns the fan-out section, never nil.
func (c RunConfig) Fanout() map[string]any {
	if m := c.Section(SectionFanout); m != nil {
		return m
	}
	return map[string]any{}
}

// SolidConfig returns the config fields supplied for a solid.
func (c RunConfig) SolidConfig(solid string) map[string]any {
	return nested(c.Section(SectionSolids), solid, "config")
}

// ResourceConfig returns the config fields supplied for a resource.
func (c RunConfig) ResourceConfig(resource string) map[string]any {
	return nested(c.Section(SectionResources), resource, "config")
}

// InputValue returns the value supplied for a solid input and whether one was
// supplied at all.
func (c RunConfig) InputValue(solid, input string) (any, bool) {
	entry, ok := nested(c.Section(SectionSolids), solid, "inputs")[input].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := entry["value"]
	return v, ok
}

func nested(section map[string]any, name, key string) map[string]any {
	entry, _ := section[name].(map[string]any)
	m, _ := entry[key].(map[string]any)
	return m
}
