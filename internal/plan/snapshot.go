// Package plan builds execution plan snapshots: the ordered steps of a
// pipeline and the subset of them selected for execution.
package plan

import "fmt"

// StepSnapshot is a single executable step and the step keys it depends on.
type StepSnapshot struct {
	Key          string   `json:"key" msgpack:"key"`
	Solid        string   `json:"solid" msgpack:"solid"`
	Kind         string   `json:"kind" msgpack:"kind"`
	Dependencies []string `json:"dependencies" msgpack:"dependencies"`
}

// Snapshot is an immutable execution plan. It is built once inside the
// worker, serialized, and never mutated after that.
type Snapshot struct {
	Pipeline           string         `json:"pipeline" msgpack:"pipeline"`
	Mode               string         `json:"mode" msgpack:"mode"`
	PipelineSnapshotID string         `json:"pipeline_snapshot_id,omitempty" msgpack:"pipeline_snapshot_id,omitempty"`
	Steps              []StepSnapshot `json:"steps" msgpack:"steps"`
	StepKeysToExecute  []string       `json:"step_keys_to_execute" msgpack:"step_keys_to_execute"`
}

// StepKeys returns the keys of every step, in plan order.
func (s *Snapshot) StepKeys() []string {
	keys := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		keys = append(keys, step.Key)
	}
	return keys
}

// Step returns the step with the given key.
func (s *Snapshot) Step(key string) (StepSnapshot, bool) {
	for _, step := range s.Steps {
		if step.Key == key {
			return step, true
		}
	}
	return StepSnapshot{}, false
}

// Validate checks the structural invariants of a snapshot: step keys are
// unique, dependencies point at steps in the plan, and every selected key
// appears exactly once among the steps.
func (s *Snapshot) Validate() error {
	keys := make(map[string]bool, len(s.Steps))
	for _, step := range s.Steps {
		if keys[step.Key] {
			return fmt.Errorf("duplicate step key %s", step.Key)
		}
		keys[step.Key] = true
	}
	for _, step := range s.Steps {
		for _, dep := range step.Dependencies {
			if !keys[dep] {
				return fmt.Errorf("step %s depends on %s, which is not in the plan", step.Key, dep)
			}
		}
	}

	seen := make(map[string]bool, len(s.StepKeysToExecute))
	for _, k := range s.StepKeysToExecute {
		if !keys[k] {
			return fmt.Errorf("step to execute %s is not in the plan", k)
		}
		if seen[k] {
			return fmt.Errorf("step to execute %s is listed more than once", k)
		}
		seen[k] = true
	}
	return nil
}
