package plan

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/hcl_adapter"
	"github.com/vk/planner/internal/runconfig"
	"github.com/vk/planner/internal/selection"
	"github.com/vk/planner/internal/testutil"
)

func load(t *testing.T, path, name string) (context.Context, *config.Pipeline, *Builder) {
	t.Helper()
	ctx, _ := testutil.Context(t)
	model, conv, err := hcl_adapter.NewLoader().Load(ctx, path)
	require.NoError(t, err)
	p, ok := model.Pipelines[name]
	require.True(t, ok)
	return ctx, p, NewBuilder(conv)
}

func TestBuild_Foo(t *testing.T) {
	ctx, foo, b := load(t, testutil.WriteFooPipeline(t), "foo")

	testCases := []struct {
		name      string
		runConfig map[string]any
		mode      string
		sel       selection.Request
		wantSteps []string
		wantKeys  []string
	}{
		{
			name:      "no selection plans everything",
			mode:      "default",
			sel:       selection.None(),
			wantSteps: []string{"do_something.compute", "do_input.compute"},
			wantKeys:  []string{"do_something.compute", "do_input.compute"},
		},
		{
			name:      "empty mode falls back to the default mode",
			sel:       selection.None(),
			wantSteps: []string{"do_something.compute", "do_input.compute"},
			wantKeys:  []string{"do_something.compute", "do_input.compute"},
		},
		{
			name:      "explicit step keys narrow execution but not the graph",
			mode:      "default",
			sel:       selection.StepKeys("do_something.compute"),
			wantSteps: []string{"do_something.compute", "do_input.compute"},
			wantKeys:  []string{"do_something.compute"},
		},
		{
			name:      "entity selection with the input supplied",
			mode:      "default",
			runConfig: map[string]any{"solids": map[string]any{"do_input": map[string]any{"inputs": map[string]any{"x": map[string]any{"value": "test"}}}}},
			sel:       selection.Entities("do_input"),
			wantSteps: []string{"do_input.compute"},
			wantKeys:  []string{"do_input.compute"},
		},
		{
			name:      "entity selection pulls in the upstream feeding the input",
			mode:      "default",
			sel:       selection.Entities("do_input"),
			wantSteps: []string{"do_something.compute", "do_input.compute"},
			wantKeys:  []string{"do_something.compute", "do_input.compute"},
		},
		{
			name:      "entity selection does not pull in descendants",
			mode:      "other",
			sel:       selection.Entities("do_something"),
			wantSteps: []string{"do_something.compute"},
			wantKeys:  []string{"do_something.compute"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := b.Build(ctx, Input{
				Pipeline:   foo,
				RunConfig:  runconfig.FromMap(tc.runConfig),
				Mode:       tc.mode,
				Selection:  tc.sel,
				SnapshotID: "snap-1",
			})
			require.NoError(t, err)
			require.NoError(t, snap.Validate())
			assert.Equal(t, tc.wantSteps, snap.StepKeys())
			assert.Equal(t, tc.wantKeys, snap.StepKeysToExecute)
			assert.Equal(t, "foo", snap.Pipeline)
			assert.Equal(t, "snap-1", snap.PipelineSnapshotID)
		})
	}
}

func TestBuild_FooDependencies(t *testing.T) {
	ctx, foo, b := load(t, testutil.WriteFooPipeline(t), "foo")

	snap, err := b.Build(ctx, Input{Pipeline: foo})
	require.NoError(t, err)
	assert.Equal(t, "default", snap.Mode)

	doInput, ok := snap.Step("do_input.compute")
	require.True(t, ok)
	assert.Equal(t, []string{"do_something.compute"}, doInput.Dependencies)
	assert.Equal(t, "do_input", doInput.Solid)
	assert.Equal(t, "compute", doInput.Kind)

	doSomething, _ := snap.Step("do_something.compute")
	assert.Empty(t, doSomething.Dependencies)
}

func TestBuild_Errors(t *testing.T) {
	ctx, foo, b := load(t, testutil.WriteFooPipeline(t), "foo")

	t.Run("unknown mode", func(t *testing.T) {
		_, err := b.Build(ctx, Input{Pipeline: foo, Mode: "made_up_mode"})
		var modeErr *ModeNotFoundError
		require.True(t, errors.As(err, &modeErr))
		assert.Equal(t, "Could not find mode made_up_mode in pipeline foo", err.Error())
		assert.Equal(t, "ModeNotFoundError", modeErr.ClassName())
	})

	t.Run("unknown step key", func(t *testing.T) {
		_, err := b.Build(ctx, Input{Pipeline: foo, Selection: selection.StepKeys("nope.compute")})
		var keyErr *selection.UnknownStepKeyError
		require.True(t, errors.As(err, &keyErr))
		assert.Equal(t, "Execution plan does not contain step: nope.compute", err.Error())
	})

	t.Run("unknown solid", func(t *testing.T) {
		_, err := b.Build(ctx, Input{Pipeline: foo, Selection: selection.Entities("nope")})
		var subsetErr *selection.InvalidSubsetError
		require.True(t, errors.As(err, &subsetErr))
		assert.Equal(t, "No qualified solids to execute found for solid_selection [nope]", err.Error())
	})

	t.Run("invalid run config", func(t *testing.T) {
		_, err := b.Build(ctx, Input{
			Pipeline:  foo,
			RunConfig: runconfig.FromMap(map[string]any{"solids": map[string]any{"ghost": map[string]any{}}, "extra": 1}),
		})
		var cfgErr *runconfig.InvalidConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Len(t, cfgErr.Violations, 2)
		assert.Contains(t, err.Error(), "Invalid run config for pipeline foo (2 errors):")
	})

	t.Run("nil pipeline", func(t *testing.T) {
		_, err := b.Build(ctx, Input{})
		assert.Error(t, err)
	})
}

func fanConfig(count any) map[string]any {
	return map[string]any{
		"solids": map[string]any{
			"work": map[string]any{"inputs": map[string]any{"label": map[string]any{"value": "w"}}},
		},
		"resources": map[string]any{
			"store": map[string]any{"config": map[string]any{"bucket": "b"}},
		},
		"fanout": map[string]any{"work": count},
	}
}

func TestBuild_FanOut(t *testing.T) {
	ctx, fan, b := load(t, testutil.WriteFanPipeline(t), "fan")

	snap, err := b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(2))})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"source.compute",
		"work[0].compute",
		"work[1].compute",
		"report.compute",
	}, snap.StepKeys())

	work0, _ := snap.Step("work[0].compute")
	assert.Equal(t, []string{"source.compute"}, work0.Dependencies, "pass-through solids are skipped")
	assert.Equal(t, "work", work0.Solid)

	report, _ := snap.Step("report.compute")
	assert.Equal(t, []string{"work[0].compute", "work[1].compute"}, report.Dependencies)
}

func TestBuild_FanOutSelection(t *testing.T) {
	ctx, fan, b := load(t, testutil.WriteFanPipeline(t), "fan")

	testCases := []struct {
		name     string
		sel      selection.Request
		wantKeys []string
	}{
		{
			name:     "instances are selected together with their data upstream",
			sel:      selection.Entities("work"),
			wantKeys: []string{"source.compute", "work[0].compute", "work[1].compute", "work[2].compute"},
		},
		{
			name:     "control dependencies are not required",
			sel:      selection.Entities("report"),
			wantKeys: []string{"report.compute"},
		},
		{
			name:     "ancestor query follows control dependencies",
			sel:      selection.Entities("+report"),
			wantKeys: []string{"source.compute", "work[0].compute", "work[1].compute", "work[2].compute", "report.compute"},
		},
		{
			name:     "single instance by step key",
			sel:      selection.StepKeys("work[1].compute"),
			wantKeys: []string{"work[1].compute"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(3)), Selection: tc.sel})
			require.NoError(t, err)
			require.NoError(t, snap.Validate())
			assert.Equal(t, tc.wantKeys, snap.StepKeysToExecute)
		})
	}
}

func TestBuild_FanOutCountViolations(t *testing.T) {
	ctx, fan, b := load(t, testutil.WriteFanPipeline(t), "fan")

	testCases := []struct {
		name    string
		count   any
		wantMsg string
	}{
		{"negative", -1, "count must not be negative"},
		{"fractional", 1.5, "count must be a whole number"},
		{"not a number", "many", "count must be a number"},
		{"null", nil, "count must be a known, non-null number"},
		{"above the instance limit", 1 << 50, "count must not exceed 1024, got 1125899906842624"},
		{"beyond int64", uint64(math.MaxUint64), "count must be a whole number"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(tc.count))})
			var cfgErr *runconfig.InvalidConfigError
			require.True(t, errors.As(err, &cfgErr))
			require.Len(t, cfgErr.Violations, 1)
			assert.Equal(t, "fanout.work", cfgErr.Violations[0].Path)
			assert.Contains(t, cfgErr.Violations[0].Message, tc.wantMsg)
		})
	}

	t.Run("limit is configurable", func(t *testing.T) {
		small := NewBuilder(b.conv, WithMaxInstances(3))
		_, err := small.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(4))})
		var cfgErr *runconfig.InvalidConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, []runconfig.Violation{{Path: "fanout.work", Message: "count must not exceed 3, got 4"}}, cfgErr.Violations)

		snap, err := small.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(3))})
		require.NoError(t, err)
		assert.Len(t, snap.Steps, 5)
	})

	t.Run("zero count leaves the solid without steps", func(t *testing.T) {
		snap, err := b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(0))})
		require.NoError(t, err)
		assert.Equal(t, []string{"source.compute", "report.compute"}, snap.StepKeysToExecute)

		_, err = b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(0)), Selection: selection.Entities("work")})
		var subsetErr *selection.InvalidSubsetError
		require.True(t, errors.As(err, &subsetErr))
		assert.Equal(t, "No qualified solids to execute found for solid_selection [work]: no steps are produced by work", err.Error())
	})

	t.Run("missing count is reported with every other violation", func(t *testing.T) {
		_, err := b.Build(ctx, Input{Pipeline: fan, RunConfig: runconfig.RunConfig{}})
		var cfgErr *runconfig.InvalidConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, []runconfig.Violation{
			{Path: "fanout.work", Message: cfgErr.Violations[0].Message},
			{Path: "resources.store.config.bucket", Message: "missing required config field"},
			{Path: "solids.work.inputs.label", Message: "missing required input"},
		}, cfgErr.Violations)
		assert.Contains(t, cfgErr.Violations[0].Message, "count could not be evaluated")
	})
}

func TestBuild_CountReadsMode(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{"p.hcl": `
pipeline "p" {
  mode "default" {}
  mode "big" {}
  solid "w" {
    compute = "f"
    count   = mode == "big" ? 3 : 1
  }
}`})
	model, conv, err := hcl_adapter.NewLoader().Load(ctx, dir)
	require.NoError(t, err)
	b := NewBuilder(conv)

	snap, err := b.Build(ctx, Input{Pipeline: model.Pipelines["p"], Mode: "big"})
	require.NoError(t, err)
	assert.Equal(t, []string{"w[0].compute", "w[1].compute", "w[2].compute"}, snap.StepKeys())

	snap, err = b.Build(ctx, Input{Pipeline: model.Pipelines["p"]})
	require.NoError(t, err)
	assert.Equal(t, []string{"w[0].compute"}, snap.StepKeys())
}

func TestBuild_Deterministic(t *testing.T) {
	ctx, fan, b := load(t, testutil.WriteFanPipeline(t), "fan")
	in := Input{Pipeline: fan, RunConfig: runconfig.FromMap(fanConfig(4)), Selection: selection.Entities("report*")}

	first, err := b.Build(ctx, in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := b.Build(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
