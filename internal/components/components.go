// Package components holds the bundled integrated assessment model: a fixed
// chain of components from baseline scenario to economics, and the variants
// that can be selected at each extension point.
//
// Every component follows the same contract. Build declares variables and
// parameters on the shared builder and returns equations, constraints and at
// most one objective. Equations define every computed variable so that a
// composition can be simulated forward; constraints carry the relations only
// an external solver enforces.
package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// Extension points of the standard layout.
const (
	DamagePoint            = "damage_module"
	EmissionTradePoint     = "emissiontrade_module"
	FinancialTransferPoint = "financialtransfer_module"
	EffortSharingPoint     = "effortsharing_regime"
	WelfarePoint           = "welfare_module"
	ObjectivePoint         = "objective_module"
)

// Variants returns a fresh map of every bundled variant per extension point.
func Variants() map[string]map[string]func() model.Component {
	return map[string]map[string]func() model.Component{
		DamagePoint: {
			"nodamage":  NewNoDamage,
			"quadratic": NewQuadraticDamage,
			"coacch":    NewCOACCHDamage,
		},
		EmissionTradePoint: {
			"notrade":        NewNoTrade,
			"globalcostpool": NewGlobalCostPool,
		},
		FinancialTransferPoint: {
			"notransfer":       NewNoTransfer,
			"globaldamagepool": NewGlobalDamagePool,
		},
		EffortSharingPoint: {
			"noregime":                 NewNoRegime,
			"equal_mitigation_costs":   NewEqualMitigationCosts,
			"equal_total_costs":        NewEqualTotalCosts,
			"per_cap_convergence":      NewPerCapConvergence,
			"ability_to_pay":           NewAbilityToPay,
			"equal_cumulative_per_cap": NewEqualCumulativePerCap,
		},
		WelfarePoint: {
			"welfare_loss_minimising":  NewWelfareLossMinimising,
			"cost_minimising":          NewCostMinimising,
			"inequal_aversion_general": NewInequalAversionGeneral,
			"inequal_aversion_zero":    NewInequalAversionZero,
			"inequal_aversion_elasmu":  NewInequalAversionElasmu,
		},
		ObjectivePoint: {
			"utility":     NewUtilityObjective,
			"globalcosts": NewGlobalCostsObjective,
		},
	}
}

// DefaultSelection picks the variants used when a configuration names none.
func DefaultSelection() map[string]string {
	return map[string]string{
		DamagePoint:            "coacch",
		EmissionTradePoint:     "notrade",
		FinancialTransferPoint: "notransfer",
		EffortSharingPoint:     "noregime",
		WelfarePoint:           "welfare_loss_minimising",
		ObjectivePoint:         "utility",
	}
}

type component struct {
	name  string
	build func(b *model.Builder) []model.Relation
}

func newComponent(name string, build func(b *model.Builder) []model.Relation) model.Component {
	return &component{name: name, build: build}
}

func (c *component) Name() string { return c.name }

func (c *component) Build(b *model.Builder) ([]model.Relation, error) { return c.build(b), nil }

func regionalConstraint(name string, rule model.ConstraintRule) *model.Constraint {
	return &model.Constraint{Name: name, Shape: model.TimeRegion, Rule: rule}
}

func globalConstraint(name string, rule model.ConstraintRule) *model.Constraint {
	return &model.Constraint{Name: name, Shape: model.Time, Rule: rule}
}

func equal(res model.Residual) model.Outcome {
	return model.Emit(model.Rel{Sense: model.EQ, Residual: res})
}

func atMost(res model.Residual) model.Outcome {
	return model.Emit(model.Rel{Sense: model.LE, Residual: res})
}

func atLeast(res model.Residual) model.Outcome {
	return model.Emit(model.Rel{Sense: model.GE, Residual: res})
}

// scalar reads a scalar parameter from a constraint rule.
func scalar(p model.ParamScope, name string) float64 {
	return p.ParamAt(name, model.AtTime(0))
}

// enabled reports whether an optional limit is set. Unset limits are bound
// to +Inf.
func enabled(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

func flag(p model.ParamScope, name string) bool { return scalar(p, name) != 0 }

// regionSum adds a regional value over all regions at step t.
func regionSum(v model.ValueScope, name string, t int) float64 {
	sum := 0.0
	for r := range v.Dims().Regions {
		sum += v.ValueAt(name, model.At(t, r))
	}
	return sum
}

// productSum is the sum over regions of a[t,r]*b[t,r] from an equation rule.
func productSum(s model.Scope, a, b string) float64 {
	sum := 0.0
	for r := range s.Dims().Regions {
		sum += s.ValueAt(a, r) * s.ValueAt(b, r)
	}
	return sum
}

// softplus is the smooth max(x, 0) used wherever a base must stay positive.
func softplus(x float64) float64 { return model.SoftPositive(x, 1) }

// discount is the continuous discount factor of step t at rate prtp.
func discount(s model.Scope, prtp float64) float64 {
	return math.Exp(-prtp * (s.Year() - s.Dims().BeginYear))
}
