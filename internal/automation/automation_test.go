package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/storage"
	"github.com/san-kum/ecosim/internal/telemetry"
)

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Time.EndYear = 2060
	cfg.Time.Dt = 10
	return cfg
}

func TestRunnerRun(t *testing.T) {
	r := NewRunner()
	r.Metrics = []string{"final:temperature", "peak:temperature"}
	r.Recorder = telemetry.NewRecorder()

	out, err := r.Run(context.Background(), shortConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, out.Result.StepsTaken)
	assert.Contains(t, out.Result.Metrics, "final_temperature")
	assert.GreaterOrEqual(t, out.Result.Metrics["peak_temperature"], out.Result.Metrics["final_temperature"])

	name, value := out.Objective()
	assert.Equal(t, "NPV", name)
	assert.False(t, math.IsNaN(value))

	reg := r.Recorder.Registry()
	n, err := testutil.GatherAndCount(reg, "ecosim_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunnerRejectsBadMetric(t *testing.T) {
	r := NewRunner()
	r.Metrics = []string{"energy"}
	_, err := r.Run(context.Background(), shortConfig())
	assert.Error(t, err)
}

func TestRunnerUnknownVariant(t *testing.T) {
	cfg := shortConfig()
	cfg.Variants["damage_module"] = "hyperbolic"
	_, err := NewRunner().Run(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestRunnerWithoutDefaultControl(t *testing.T) {
	cfg := shortConfig()
	cfg.Simulation.DefaultControl = nil
	_, err := NewRunner().Run(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrMissingControlValue)

	cfg.Controls = map[string]config.ControlConfig{
		"relative_abatement": {Kind: "constant", Value: 0.2},
	}
	_, err = NewRunner().Run(context.Background(), cfg)
	assert.NoError(t, err)
}

const scenarioYAML = `
name: policy comparison
description: baseline against a pooled ramp
steps:
  - name: reference
    preset: baseline
    save: true
  - name: pooled_fast
    preset: pooled
    params:
      PRTP: 0.02
    controls:
      relative_abatement:
        kind: ramp
        from: 0
        to: 1
        years: 30
    save: true
  - name: unsaved
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, "policy comparison", sc.Name)

	store := storage.New(t.TempDir())
	require.NoError(t, store.Init())

	results, err := RunScenario(context.Background(), sc, NewRunner(), store)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "pooled_fast", results[1].Name)
	assert.NotEmpty(t, results[0].RunID)
	assert.Empty(t, results[2].RunID)
	assert.Equal(t, 0.02, results[1].Outcome.Config.Params["PRTP"])

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	meta, err := store.Load(results[1].RunID)
	require.NoError(t, err)
	assert.Equal(t, "globalcostpool", meta.Variants["emissiontrade_module"])
	assert.Equal(t, "NPV", meta.Objective)
}

func TestScenarioStepResolve(t *testing.T) {
	tests := []struct {
		name string
		step ScenarioStep
	}{
		{"preset and config", ScenarioStep{Name: "x", Preset: "ramp", Config: "c.yaml"}},
		{"unknown preset", ScenarioStep{Name: "x", Preset: "nope"}},
		{"missing config", ScenarioStep{Name: "x", Config: filepath.Join(t.TempDir(), "none.yaml")}},
		{"bad control", ScenarioStep{Name: "x", Controls: map[string]config.ControlConfig{
			"relative_abatement": {Kind: "sawtooth"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.step.Resolve()
			assert.Error(t, err)
		})
	}

	cfg, err := ScenarioStep{Name: "tuned", Preset: "ramp", Params: map[string]float64{"TCRE": 0.0005}}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "tuned", cfg.Name)
	assert.Equal(t, 0.0005, cfg.Params["TCRE"])
	assert.NotContains(t, config.GetPreset("ramp").Params, "TCRE")
}

func TestLoadScenarioWithoutSteps(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: empty\n"))
	assert.Error(t, err)
}

func TestRunScenarioSaveWithoutStore(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Name: "s", Preset: "baseline", Save: true}}}
	_, err := RunScenario(context.Background(), sc, NewRunner(), nil)
	assert.Error(t, err)
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{Base: shortConfig(), Param: "PRTP", Values: []float64{0.005, 0.015, 0.03}, Workers: 2}
	results, err := RunSweep(context.Background(), sweep, NewRunner())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, sweep.Values[i], r.ParamValue)
	}

	_, err = RunSweep(context.Background(), &ParameterSweep{Base: shortConfig(), Param: "missing", Values: []float64{1}}, NewRunner())
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = RunSweep(context.Background(), &ParameterSweep{Base: shortConfig(), Param: "MAC_scaling_factor", Values: []float64{1}}, NewRunner())
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = RunSweep(context.Background(), &ParameterSweep{Base: shortConfig(), Param: "PRTP"}, NewRunner())
	assert.Error(t, err)
}

func TestRunMonteCarlo(t *testing.T) {
	mc := &MonteCarloConfig{
		Base:         shortConfig(),
		Params:       []string{"TCRE", "T0"},
		Perturbation: 0.2,
		NumTrials:    4,
		Seed:         7,
		Workers:      2,
	}
	first, err := RunMonteCarlo(context.Background(), mc, NewRunner())
	require.NoError(t, err)
	require.Len(t, first, 4)
	for _, r := range first {
		assert.InDelta(t, 0.00062, r.Params["TCRE"], 0.00062*0.2+1e-12)
		assert.InDelta(t, 1.2, r.Params["T0"], 1.2*0.2+1e-12)
	}

	second, err := RunMonteCarlo(context.Background(), mc, NewRunner())
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].Params, second[i].Params)
	}

	feasible, infeasible, mean, _ := MonteCarloStats(first)
	assert.Equal(t, 4, feasible+infeasible)
	assert.False(t, math.IsNaN(mean))

	mc.Params = []string{"budget"}
	_, err = RunMonteCarlo(context.Background(), mc, NewRunner())
	assert.Error(t, err)

	mc.Perturbation = 1.5
	_, err = RunMonteCarlo(context.Background(), mc, NewRunner())
	assert.Error(t, err)
}
