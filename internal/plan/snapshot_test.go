package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Validate(t *testing.T) {
	valid := func() *Snapshot {
		return &Snapshot{
			Steps: []StepSnapshot{
				{Key: "a.compute", Dependencies: []string{}},
				{Key: "b.compute", Dependencies: []string{"a.compute"}},
			},
			StepKeysToExecute: []string{"b.compute"},
		}
	}

	assert.NoError(t, valid().Validate())

	testCases := []struct {
		name    string
		mutate  func(s *Snapshot)
		wantErr string
	}{
		{"duplicate step", func(s *Snapshot) { s.Steps = append(s.Steps, StepSnapshot{Key: "a.compute"}) }, "duplicate step key a.compute"},
		{"dangling dependency", func(s *Snapshot) { s.Steps[1].Dependencies = []string{"ghost.compute"} }, "not in the plan"},
		{"unknown selected key", func(s *Snapshot) { s.StepKeysToExecute = []string{"ghost.compute"} }, "step to execute ghost.compute is not in the plan"},
		{"repeated selected key", func(s *Snapshot) { s.StepKeysToExecute = []string{"a.compute", "a.compute"} }, "listed more than once"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			assert.ErrorContains(t, s.Validate(), tc.wantErr)
		})
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	s := &Snapshot{Steps: []StepSnapshot{{Key: "a.compute", Solid: "a"}, {Key: "b.compute", Solid: "b"}}}
	assert.Equal(t, []string{"a.compute", "b.compute"}, s.StepKeys())

	step, ok := s.Step("b.compute")
	assert.True(t, ok)
	assert.Equal(t, "b", step.Solid)

	_, ok = s.Step("c.compute")
	assert.False(t, ok)
}
