package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

func elasmu(b *model.Builder) string {
	return b.Param("elasmu", model.Scalar, model.Default(1.001), model.Within(model.NonNegative),
		model.Doc("elasticity of marginal utility of consumption"))
}

// isoelastic is the CRRA utility of per capita consumption.
func isoelastic(consumption, population, eta float64) float64 {
	return (math.Pow(softplus(consumption/population), 1-eta) - 1) / (1 - eta)
}

// NewWelfareLossMinimising sums population weighted regional utility.
func NewWelfareLossMinimising() model.Component {
	return newComponent("welfare_loss_minimising", func(b *model.Builder) []model.Relation {
		eta := elasmu(b)
		utility := b.Variable("utility", model.TimeRegion)
		welfare := b.Variable("yearly_welfare", model.Time)

		return []model.Relation{
			model.Define(utility, model.Deps(model.Now("consumption"), model.Now("population"), model.Now(eta)),
				func(s model.Scope) float64 {
					return isoelastic(s.Value("consumption"), s.Param("population"), s.Param(eta))
				}),
			model.Define(welfare, model.Deps(model.Now(utility), model.Now("population")), func(s model.Scope) float64 {
				sum := 0.0
				for r := range s.Dims().Regions {
					sum += s.ParamAt("population", model.At(s.Time(), r)) * s.ValueAt(utility, r)
				}
				return sum
			}),
		}
	})
}

// NewCostMinimising takes the utility of world consumption, so it ignores
// where costs fall.
func NewCostMinimising() model.Component {
	return newComponent("cost_minimising", func(b *model.Builder) []model.Relation {
		eta := elasmu(b)
		utility := b.Variable("utility", model.TimeRegion)
		welfare := b.Variable("yearly_welfare", model.Time)

		return []model.Relation{
			model.Define(utility, model.Deps(model.Now("consumption"), model.Now("population")), func(s model.Scope) float64 {
				return s.Value("consumption") / s.Param("population")
			}),
			model.Define(welfare, model.Deps(model.Now("consumption"), model.Now("population"), model.Now("global_population"), model.Now(eta)),
				func(s model.Scope) float64 {
					return s.Value("global_population") * isoelastic(s.Sum("consumption"), s.Sum("population"), s.Param(eta))
				}),
		}
	})
}

// inequalAversion builds a welfare variant with separate aversion to
// inequality between regions and over time. aversion returns the name of
// the parameter holding the inequality aversion; it may declare it.
func inequalAversion(name string, aversion func(b *model.Builder, eta string) string) model.Component {
	return newComponent(name, func(b *model.Builder) []model.Relation {
		eta := elasmu(b)
		ia := aversion(b, eta)
		utility := b.Variable("utility", model.TimeRegion)
		welfare := b.Variable("yearly_welfare", model.Time)

		return []model.Relation{
			model.Define(utility, model.Deps(model.Now("consumption"), model.Now("population"), model.Now(ia)),
				func(s model.Scope) float64 {
					pop := s.Param("population")
					return pop * math.Pow(softplus(s.Value("consumption")/pop), 1-s.Param(ia))
				}),
			model.Define(welfare, model.Deps(model.Now(utility), model.Now("population"), model.Now(eta), model.Now(ia)),
				func(s model.Scope) float64 {
					e, g := s.Param(eta), s.Param(ia)
					pop := s.Sum("population")
					return pop * math.Pow(softplus(s.Sum(utility)/pop), (1-e)/(1-g)) / (1 - e)
				}),
		}
	})
}

func NewInequalAversionGeneral() model.Component {
	return inequalAversion("inequal_aversion_general", func(b *model.Builder, _ string) string {
		return b.Param("inequal_aversion", model.Scalar, model.Default(0.5), model.Bounds(0, 0.999))
	})
}

// NewInequalAversionZero is indifferent to how consumption is spread over
// regions.
func NewInequalAversionZero() model.Component {
	return inequalAversion("inequal_aversion_zero", func(b *model.Builder, _ string) string {
		return b.Param("inequal_aversion", model.Scalar, model.Default(0), model.Bounds(0, 0))
	})
}

// NewInequalAversionElasmu uses the same aversion between regions as over
// time.
func NewInequalAversionElasmu() model.Component {
	return inequalAversion("inequal_aversion_elasmu", func(_ *model.Builder, eta string) string { return eta })
}
