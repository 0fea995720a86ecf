package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ecosim/internal/components"
	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
	"github.com/san-kum/ecosim/internal/solver"
)

var testDims = model.Dimensions{BeginYear: 2020, Dt: 10, Steps: 6, Regions: []string{"north", "south"}}

func grid(f func(t, r int) float64) [][]float64 {
	out := make([][]float64, testDims.Steps)
	for t := range out {
		out[t] = make([]float64, len(testDims.Regions))
		for r := range out[t] {
			out[t][r] = f(t, r)
		}
	}
	return out
}

func testBindings() *model.Bindings {
	b := model.NewBindings()
	b.SetGrid("population", grid(func(t, r int) float64 { return []float64{1, 3}[r] + 0.1*float64(t) }))
	b.SetGrid("baseline_GDP", grid(func(t, r int) float64 { return []float64{40, 12}[r] * (1 + 0.2*float64(t)) }))
	b.SetGrid("baseline_emissions", grid(func(t, r int) float64 { return []float64{14, 22}[r] + float64(t) }))
	return b
}

// abatementCost is the cost relation cost = gamma * a^2 on top of the
// standard layout.
type abatementCost struct{}

func (abatementCost) Name() string { return "abatement_cost" }

func (abatementCost) Build(b *model.Builder) ([]model.Relation, error) {
	cost := b.Variable("abatement_cost", model.TimeRegion)
	return []model.Relation{
		model.Define(cost, model.Deps(model.Now("MAC_gamma"), model.Now("relative_abatement")), func(s model.Scope) float64 {
			a := s.Value("relative_abatement")
			return s.Param("MAC_gamma") * a * a
		}),
	}, nil
}

func costLayout() Layout {
	return append(StandardLayout(), Fixed("abatement_cost", func() model.Component { return abatementCost{} }))
}

func boundExperiment(t *testing.T, layout Layout, sel Selection) *Experiment {
	t.Helper()
	e := New(NewRegistry(), layout, sel)
	require.NoError(t, e.Build())
	require.NoError(t, e.Bind(testDims, testBindings()))
	return e
}

func selections(reg *Registry, layout Layout) []Selection {
	out := []Selection{{}}
	for _, point := range layout.Points() {
		var next []Selection
		for _, sel := range out {
			for _, key := range reg.Variants(point) {
				s := Selection{point: key}
				for k, v := range sel {
					s[k] = v
				}
				next = append(next, s)
			}
		}
		out = next
	}
	return out
}

func TestZeroAbatementCostsNothingInEveryComposition(t *testing.T) {
	reg := NewRegistry()
	layout := costLayout()
	all := selections(reg, layout)
	require.Len(t, all, 3*2*2*6*5*2)

	for _, sel := range all {
		e := boundExperiment(t, layout, sel)
		res, err := e.Simulate(context.Background(), control.Zero(testDims), sim.Config{})
		require.NoError(t, err, "selection %v", sel)
		assert.Empty(t, res.Table.Missing(), "selection %v", sel)

		for _, ix := range testDims.Indices(model.TimeRegion) {
			cost, ok := res.Table.Get("abatement_cost", ix)
			require.True(t, ok)
			assert.Zero(t, cost, "selection %v at %s", sel, ix)
			assert.Zero(t, res.Table.ValueAt("area_under_MAC", ix), "selection %v at %s", sel, ix)
		}
	}
}

func TestUnknownVariantLeavesNamespaceEmpty(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.WelfarePoint] = "no_such_welfare"

	c := NewComposer()
	err := c.Compose(NewRegistry(), StandardLayout(), sel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Included())
}

func TestCompositionSelectionErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(Selection)
	}{
		{"missing point", func(s Selection) { delete(s, components.DamagePoint) }},
		{"unknown point", func(s Selection) { s["climate_module"] = "fair" }},
		{"unknown variant", func(s Selection) { s[components.ObjectivePoint] = "maximin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Selection(components.DefaultSelection())
			tt.modify(sel)
			_, err := Compose(NewRegistry(), StandardLayout(), sel)
			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestComposerKeepsLayoutOrder(t *testing.T) {
	c := NewComposer()
	require.NoError(t, c.Compose(NewRegistry(), StandardLayout(), Selection(components.DefaultSelection())))
	assert.Equal(t, []string{
		"baseline", "emissions", "temperature", "sealevelrise", "coacch", "mitigation",
		"notrade", "notransfer", "noregime", "economics", "welfare_loss_minimising", "utility",
	}, c.Included())

	st, err := c.Freeze()
	require.NoError(t, err)
	obj, ok := st.Objective()
	require.True(t, ok)
	assert.Equal(t, "NPV", obj.Variable)
	assert.Equal(t, []string{"relative_abatement"}, st.Controls())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{
		components.DamagePoint, components.EffortSharingPoint, components.EmissionTradePoint,
		components.FinancialTransferPoint, components.ObjectivePoint, components.WelfarePoint,
	}, reg.Points())
	assert.Equal(t, []string{"coacch", "nodamage", "quadratic"}, reg.Variants(components.DamagePoint))

	_, err := reg.Resolve("no_point", "x")
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	empty := NewEmptyRegistry()
	empty.Register(components.DamagePoint, "nodamage", components.NewNoDamage)
	comp, err := empty.Resolve(components.DamagePoint, "nodamage")
	require.NoError(t, err)
	assert.Equal(t, "nodamage", comp.Name())
}

func TestLifecycle(t *testing.T) {
	e := New(NewRegistry(), StandardLayout(), Selection(components.DefaultSelection()))
	assert.Equal(t, Unbuilt, e.State())

	err := e.Bind(testDims, testBindings())
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, e.Build())
	assert.Equal(t, Abstract, e.State())
	assert.True(t, errors.Is(e.Build(), ErrInvalidTransition))

	require.NoError(t, e.Bind(testDims, testBindings()))
	assert.Equal(t, Bound, e.State())

	// no control values: the run fails and the instance stays bound
	_, err = e.Simulate(context.Background(), nil, sim.Config{})
	assert.True(t, errors.Is(err, model.ErrMissingControlValue))
	assert.Equal(t, Bound, e.State())

	res, err := e.Simulate(context.Background(), control.Zero(testDims), sim.Config{})
	require.NoError(t, err)
	assert.Equal(t, Simulated, e.State())
	assert.Same(t, res, e.Result())

	_, err = e.Simulate(context.Background(), control.Zero(testDims), sim.Config{})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	_, err = e.Optimise(context.Background(), solver.Feasibility{}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestBindMissingParameter(t *testing.T) {
	e := New(NewRegistry(), StandardLayout(), Selection(components.DefaultSelection()))
	require.NoError(t, e.Build())
	err := e.Bind(testDims, model.NewBindings())
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Abstract, e.State())
}

func TestBaselineIsReproducedWithoutPolicy(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.DamagePoint] = "nodamage"
	e := boundExperiment(t, StandardLayout(), sel)

	res, err := e.Simulate(context.Background(), control.Zero(testDims), sim.Config{})
	require.NoError(t, err)
	for _, ix := range testDims.Indices(model.TimeRegion) {
		want := e.Bound().ParamAt("baseline_GDP", ix)
		assert.InEpsilon(t, want, res.Table.ValueAt("GDP_gross", ix), 1e-6, "at %s", ix)
		assert.InEpsilon(t, want, res.Table.ValueAt("GDP_net", ix), 1e-6, "at %s", ix)
	}
}

func TestAbatementReducesEmissions(t *testing.T) {
	e := boundExperiment(t, StandardLayout(), Selection(components.DefaultSelection()))
	controls := control.NewSet(testDims).Add("relative_abatement", control.Constant{V: 0.5})

	res, err := e.Simulate(context.Background(), controls, sim.Config{})
	require.NoError(t, err)

	tbl := res.Table
	assert.Equal(t, 14.0, tbl.ValueAt("regional_emissions", model.At(0, 0)))
	assert.InDelta(t, 0.5*15, tbl.ValueAt("regional_emissions", model.At(1, 0)), 1e-12)
	assert.InDelta(t, 0.5*23, tbl.ValueAt("regional_emissions", model.At(1, 1)), 1e-12)

	// trapezoid over the first decade: (36 + 19) / 2 * 10
	cum := tbl.ValueAt("cumulative_emissions", model.AtTime(1))
	assert.InDelta(t, 275, cum, 1e-9)
	assert.InDelta(t, 1.2+0.00062*cum, tbl.ValueAt("temperature", model.AtTime(1)), 1e-12)

	assert.Positive(t, tbl.ValueAt("mitigation_costs", model.At(1, 0)))
	assert.Positive(t, tbl.ValueAt("carbonprice", model.At(1, 1)))
	assert.Zero(t, tbl.ValueAt("carbonprice", model.At(0, 1)))
}

func TestGlobalDamagePoolSumsToZero(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.DamagePoint] = "quadratic"
	sel[components.FinancialTransferPoint] = "globaldamagepool"
	e := boundExperiment(t, StandardLayout(), sel)

	res, err := e.Simulate(context.Background(), control.Zero(testDims), sim.Config{})
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
	for step := 1; step < testDims.Steps; step++ {
		sum := 0.0
		for r := range testDims.Regions {
			sum += res.Table.ValueAt("financial_transfer", model.At(step, r))
		}
		assert.InDelta(t, 0, sum, 1e-9, "step %d", step)
	}
}

func TestOptimiseWithFeasibilityAdapter(t *testing.T) {
	e := boundExperiment(t, StandardLayout(), Selection(components.DefaultSelection()))
	s, err := e.Simulator()
	require.NoError(t, err)
	warm, err := s.Run(context.Background(), control.Zero(testDims), sim.Config{})
	require.NoError(t, err)
	assert.Equal(t, Bound, e.State())

	sol, err := e.Optimise(context.Background(), solver.Feasibility{}, warm.Table)
	require.NoError(t, err)
	assert.Equal(t, solver.Optimal, sol.Status)
	assert.Equal(t, Optimised, e.State())
	assert.Equal(t, warm.Table.Final("NPV"), sol.ObjectiveValue)
}

func TestOptimiseWithoutWarmStartIsTerminal(t *testing.T) {
	e := boundExperiment(t, StandardLayout(), Selection(components.DefaultSelection()))
	sol, err := e.Optimise(context.Background(), solver.Feasibility{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrNotOptimal))
	assert.Equal(t, solver.Error, sol.Status)
	assert.Equal(t, Optimised, e.State())
}

func TestCarbonBudgetConstraint(t *testing.T) {
	e := New(NewRegistry(), StandardLayout(), Selection(components.DefaultSelection()))
	require.NoError(t, e.Build())
	b := testBindings()
	b.SetScalar("budget", 100)
	dims := testDims
	dims.Steps = 10
	b.SetGrid("population", [][]float64{{1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}, {1, 3}})
	b.SetScalar("baseline_GDP", 20)
	b.SetScalar("baseline_emissions", 10)
	require.NoError(t, e.Bind(dims, b))

	res, err := e.Simulate(context.Background(), control.Zero(dims), sim.Config{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Violations)
	for _, v := range res.Violations {
		assert.Equal(t, "carbon_budget", v.Constraint)
		assert.GreaterOrEqual(t, dims.Year(v.Index.T), 2100.0)
		assert.False(t, math.IsNaN(v.Residual))
	}
}

func halfAbatement() *control.Set {
	return control.NewSet(testDims).Add("relative_abatement", control.Constant{V: 0.5})
}

func violatedAt(res *sim.Result, constraint string) []int {
	var steps []int
	for _, v := range res.Violations {
		if v.Constraint == constraint {
			steps = append(steps, v.Index.T)
		}
	}
	return steps
}

func TestPerCapConvergenceSharesAddUp(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.EffortSharingPoint] = "per_cap_convergence"
	e := boundExperiment(t, StandardLayout(), sel)

	res, err := e.Simulate(context.Background(), halfAbatement(), sim.Config{})
	require.NoError(t, err)
	for step := range testDims.Steps {
		sum := 0.0
		for r := range testDims.Regions {
			sum += res.Table.ValueAt("percapconv_share", model.At(step, r))
		}
		assert.InDelta(t, 1, sum, 1e-12, "step %d", step)
	}
	assert.InDelta(t, 14.0/36, res.Table.ValueAt("percapconv_share", model.At(0, 0)), 1e-12)
	// 2050 is step 3: equal per capita from there on
	assert.InDelta(t, 1.3/4.6, res.Table.ValueAt("percapconv_share", model.At(3, 0)), 1e-12)

	// without trade the allowances are the physical emissions, which
	// follow the baseline instead of the population
	steps := violatedAt(res, "percapconv_rule")
	require.NotEmpty(t, steps)
	assert.NotContains(t, steps, 0)
}

func TestAbilityToPayAllocatesTheGlobalEffort(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.EffortSharingPoint] = "ability_to_pay"
	e := boundExperiment(t, StandardLayout(), sel)

	res, err := e.Simulate(context.Background(), halfAbatement(), sim.Config{})
	require.NoError(t, err)
	tbl := res.Table
	assert.Equal(t, 1.0, tbl.ValueAt("effortsharing_AP_inv_correction_factor", model.AtTime(0)))
	for step := 1; step < testDims.Steps; step++ {
		sum := 0.0
		for r := range testDims.Regions {
			sum += tbl.ValueAt("effortsharing_AP_allowances", model.At(step, r))
		}
		assert.InEpsilon(t, tbl.ValueAt("global_emissions", model.AtTime(step)), sum, 1e-3, "step %d", step)

		// north is richer per capita and keeps a smaller part of its baseline
		north := tbl.ValueAt("effortsharing_AP_allowances", model.At(step, 0)) / tbl.ValueAt("baseline", model.At(step, 0))
		south := tbl.ValueAt("effortsharing_AP_allowances", model.At(step, 1)) / tbl.ValueAt("baseline", model.At(step, 1))
		assert.Less(t, north, south, "step %d", step)
	}
	for _, step := range violatedAt(res, "effortsharing_AP_rule") {
		assert.NotZero(t, step)
	}
}

func TestEqualCumulativePerCapSettlesAtTheEnd(t *testing.T) {
	sel := Selection(components.DefaultSelection())
	sel[components.EffortSharingPoint] = "equal_cumulative_per_cap"
	e := New(NewRegistry(), StandardLayout(), sel)
	require.NoError(t, e.Build())
	b := testBindings()
	b.SetRegional("effort_sharing_ecpc_debt", []float64{5, -5})
	require.NoError(t, e.Bind(testDims, b))

	res, err := e.Simulate(context.Background(), halfAbatement(), sim.Config{})
	require.NoError(t, err)
	tbl := res.Table
	assert.Equal(t, 5.0, tbl.ValueAt("effort_sharing_ecpc_balance", model.At(0, 0)))
	assert.Equal(t, -5.0, tbl.ValueAt("effort_sharing_ecpc_balance", model.At(0, 1)))

	ix := model.At(1, 0)
	want := 5 + testDims.Dt*(tbl.ValueAt("effort_sharing_ecpc_fair_share", ix)-tbl.ValueAt("regional_emission_allowances", ix))
	assert.InDelta(t, want, tbl.ValueAt("effort_sharing_ecpc_balance", ix), 1e-9)

	// debts cancel and without trade both regions emit the global total
	for step := range testDims.Steps {
		sum := 0.0
		for r := range testDims.Regions {
			sum += tbl.ValueAt("effort_sharing_ecpc_balance", model.At(step, r))
		}
		assert.InDelta(t, 0, sum, 1e-9, "step %d", step)
	}

	steps := violatedAt(res, "effort_sharing_ecpc_budget")
	require.NotEmpty(t, steps)
	for _, step := range steps {
		assert.Equal(t, testDims.Steps-1, step)
	}
}
