package runconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/hcl_adapter"
	"github.com/vk/planner/internal/testutil"
)

func loadFan(t *testing.T) (*config.Pipeline, config.Converter) {
	t.Helper()
	ctx, _ := testutil.Context(t)
	model, conv, err := hcl_adapter.NewLoader().Load(ctx, testutil.WriteFanPipeline(t))
	require.NoError(t, err)
	return model.Pipelines["fan"], conv
}

func validFanConfig() map[string]any {
	return map[string]any{
		"solids": map[string]any{
			"work": map[string]any{"inputs": map[string]any{"label": map[string]any{"value": "w"}}},
		},
		"resources": map[string]any{
			"store": map[string]any{"config": map[string]any{"bucket": "b"}},
		},
		"fanout":    map[string]any{"work": 2},
		"execution": map[string]any{"anything": true},
		"loggers":   map[string]any{"console": map[string]any{}},
	}
}

func TestValidate_Valid(t *testing.T) {
	p, conv := loadFan(t)
	mode, _ := p.Mode("default")

	got := Validate(FromMap(validFanConfig()), Schema{Pipeline: p, Mode: mode}, conv)
	assert.Empty(t, got)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	p, conv := loadFan(t)
	mode, _ := p.Mode("default")

	cfg := FromMap(map[string]any{
		"solids": map[string]any{
			"ghost":  map[string]any{},
			"source": map[string]any{"config": map[string]any{"limit": "lots", "extra": 1}},
			"work": map[string]any{
				"inputs": map[string]any{"nope": map[string]any{"value": 1}},
				"other":  true,
			},
		},
		"resources": map[string]any{
			"store": map[string]any{"config": map[string]any{}},
			"cache": map[string]any{},
		},
		"bogus": 1,
	})

	got := Validate(cfg, Schema{Pipeline: p, Mode: mode}, conv)

	paths := make([]string, 0, len(got))
	for _, v := range got {
		paths = append(paths, v.Path)
	}
	assert.Equal(t, []string{
		"bogus",
		"resources.cache",
		"resources.store.config.bucket",
		"solids.ghost",
		"solids.source.config.extra",
		"solids.source.config.limit",
		"solids.work.inputs.label",
		"solids.work.inputs.nope",
		"solids.work.other",
	}, paths)

	byPath := make(map[string]string, len(got))
	for _, v := range got {
		byPath[v.Path] = v.Message
	}
	assert.Equal(t, "unknown top-level section", byPath["bogus"])
	assert.Equal(t, "unknown resource for mode default", byPath["resources.cache"])
	assert.Equal(t, "missing required config field", byPath["resources.store.config.bucket"])
	assert.Equal(t, "unknown solid in pipeline fan", byPath["solids.ghost"])
	assert.Contains(t, byPath["solids.source.config.limit"], "expected number")
	assert.Equal(t, "missing required input", byPath["solids.work.inputs.label"])
	assert.Equal(t, "unknown input of solid work", byPath["solids.work.inputs.nope"])
}

func TestValidate_InputTypes(t *testing.T) {
	p, conv := loadFan(t)
	mode, _ := p.Mode("local")

	cfg := FromMap(map[string]any{
		"solids": map[string]any{
			"work": map[string]any{"inputs": map[string]any{
				"label": map[string]any{"value": []any{"not", "a", "string"}},
				"rows":  "no value key",
			}},
		},
	})

	got := Validate(cfg, Schema{Pipeline: p, Mode: mode}, conv)
	require.Len(t, got, 2)
	assert.Equal(t, "solids.work.inputs.label.value", got[0].Path)
	assert.Contains(t, got[0].Message, "expected string")
	assert.Equal(t, "solids.work.inputs.rows", got[1].Path)
	assert.Equal(t, "expected a mapping with a 'value' key", got[1].Message)
}

func TestValidate_SelectedSubset(t *testing.T) {
	p, conv := loadFan(t)
	mode, _ := p.Mode("local")

	testCases := []struct {
		name     string
		selected map[string]bool
		cfg      map[string]any
		want     []string
	}{
		{
			name:     "unselected solid inputs are not required",
			selected: map[string]bool{"source": true},
			want:     nil,
		},
		{
			name:     "upstream reached through a pass-through solid must be selected",
			selected: map[string]bool{"work": true},
			cfg: map[string]any{"solids": map[string]any{
				"work": map[string]any{"inputs": map[string]any{"label": map[string]any{"value": "w"}}},
			}},
			want: []string{"solids.group.inputs.rows"},
		},
		{
			name:     "selected upstream satisfies wired inputs",
			selected: map[string]bool{"source": true, "work": true},
			cfg: map[string]any{"solids": map[string]any{
				"work": map[string]any{"inputs": map[string]any{"label": map[string]any{"value": "w"}}},
			}},
			want: nil,
		},
		{
			name:     "supplied value replaces the upstream",
			selected: map[string]bool{"work": true},
			cfg: map[string]any{"solids": map[string]any{
				"work": map[string]any{"inputs": map[string]any{
					"label": map[string]any{"value": "w"},
					"rows":  map[string]any{"value": []any{"a"}},
				}},
			}},
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(FromMap(tc.cfg), Schema{Pipeline: p, Mode: mode, Selected: tc.selected}, conv)
			var paths []string
			for _, v := range got {
				paths = append(paths, v.Path)
			}
			assert.Equal(t, tc.want, paths)
		})
	}
}
