package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewEmissions turns the relative abatement control into regional and
// global emissions and their cumulative sum. Optional budget, inertia and
// floor limits become constraints; each is dropped while its parameter is
// left at +Inf.
func NewEmissions() model.Component {
	return newComponent("emissions", func(b *model.Builder) []model.Relation {
		inf := model.Default(math.Inf(1))

		abatement := b.Control("relative_abatement", model.TimeRegion,
			model.Bounds(0, 2.5), model.Unit("fraction of baseline"))
		trapz := b.Param("cumulative_emissions_trapz", model.Scalar, model.Default(1),
			model.Doc("integrate cumulative emissions with the trapezoidal rule"))
		b.Param("budget", model.Scalar, inf, model.Unit("GtCO2"))
		b.Param("inertia_global", model.Scalar, inf)
		b.Param("inertia_regional", model.Scalar, inf)
		b.Param("global_min_level", model.Scalar, inf, model.Unit("GtCO2/yr"))
		b.Param("regional_min_level", model.Scalar, inf, model.Unit("GtCO2/yr"))
		b.Param("non_increasing_emissions_after_2100", model.Scalar, model.Default(0))
		b.Param("no_pos_emissions_after_budget_year", model.Scalar, model.Default(0))

		baseline := b.Variable("baseline", model.TimeRegion, model.Unit("GtCO2/yr"))
		regional := b.Variable("regional_emissions", model.TimeRegion, model.Unit("GtCO2/yr"))
		reduction := b.Variable("regional_emission_reduction", model.TimeRegion, model.Unit("GtCO2/yr"))
		global := b.Variable("global_emissions", model.Time, model.Unit("GtCO2/yr"))
		cumulative := b.Variable("cumulative_emissions", model.Time, model.Unit("GtCO2"))
		relative := b.Variable("emission_relative_cumulative", model.Time)

		return []model.Relation{
			model.Define(baseline, model.Deps(model.Now("baseline_emissions")), func(s model.Scope) float64 {
				return s.Param("baseline_emissions")
			}),
			model.Define(regional, model.Deps(model.Now(abatement), model.Now(baseline)), func(s model.Scope) float64 {
				if s.Time() == 0 {
					return s.Value(baseline)
				}
				return (1 - s.Value(abatement)) * s.Value(baseline)
			}),
			model.Define(reduction, model.Deps(model.Now(baseline), model.Now(regional)), func(s model.Scope) float64 {
				return s.Value(baseline) - s.Value(regional)
			}),
			model.Define(global, model.Deps(model.Now(regional)), func(s model.Scope) float64 {
				return s.Sum(regional)
			}),
			model.Define(cumulative, model.Deps(model.Prev(cumulative), model.Now(global), model.Prev(global), model.Now(trapz)),
				func(s model.Scope) float64 {
					prev := s.Lag(cumulative)
					if !prev.Ok() {
						return 0
					}
					dt := s.Dims().Dt
					if s.Param(trapz) != 0 {
						return prev.Get() + dt*(s.Value(global)+s.Lag(global).Get())/2
					}
					return prev.Get() + dt*s.Value(global)
				}),
			model.Define(relative, model.Deps(model.Now(cumulative), model.Now("cumulative_global_baseline_emissions")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 1
					}
					return s.Value(cumulative) / s.Value("cumulative_global_baseline_emissions")
				}),

			globalConstraint("carbon_budget", func(p model.ParamScope, ix model.Index) model.Outcome {
				budget := scalar(p, "budget")
				if p.Dims().Year(ix.T) < 2100 || !enabled(budget) {
					return model.Omit()
				}
				return atMost(func(v model.ValueScope) float64 { return v.ValueAt(cumulative, ix) - budget })
			}),
			globalConstraint("cumulative_emissions_nonnegative", func(p model.ParamScope, ix model.Index) model.Outcome {
				return atLeast(func(v model.ValueScope) float64 { return v.ValueAt(cumulative, ix) })
			}),
			globalConstraint("global_inertia", func(p model.ParamScope, ix model.Index) model.Outcome {
				inertia := scalar(p, "inertia_global")
				if ix.T == 0 || !enabled(inertia) {
					return model.Omit()
				}
				initial := 0.0
				for r := range p.Dims().Regions {
					initial += p.ParamAt("baseline_emissions", model.At(0, r))
				}
				limit := p.Dims().Dt * inertia * initial
				return atLeast(func(v model.ValueScope) float64 {
					return v.ValueAt(global, ix) - v.ValueAt(global, model.AtTime(ix.T-1)) - limit
				})
			}),
			regionalConstraint("regional_inertia", func(p model.ParamScope, ix model.Index) model.Outcome {
				inertia := scalar(p, "inertia_regional")
				if ix.T == 0 || !enabled(inertia) {
					return model.Omit()
				}
				limit := p.Dims().Dt * inertia * p.ParamAt("baseline_emissions", model.At(0, ix.R))
				return atLeast(func(v model.ValueScope) float64 {
					return v.ValueAt(regional, ix) - v.ValueAt(regional, model.At(ix.T-1, ix.R)) - limit
				})
			}),
			globalConstraint("global_min_level", func(p model.ParamScope, ix model.Index) model.Outcome {
				level := scalar(p, "global_min_level")
				if !enabled(level) {
					return model.Omit()
				}
				return atLeast(func(v model.ValueScope) float64 { return v.ValueAt(global, ix) - level })
			}),
			regionalConstraint("regional_min_level", func(p model.ParamScope, ix model.Index) model.Outcome {
				level := scalar(p, "regional_min_level")
				if !enabled(level) {
					return model.Omit()
				}
				return atLeast(func(v model.ValueScope) float64 { return v.ValueAt(regional, ix) - level })
			}),
			regionalConstraint("non_increasing_emissions_after_2100", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 || p.Dims().Year(ix.T-1) <= 2100 || !flag(p, "non_increasing_emissions_after_2100") {
					return model.Omit()
				}
				return atMost(func(v model.ValueScope) float64 {
					return v.ValueAt(regional, ix) - v.ValueAt(regional, model.At(ix.T-1, ix.R))
				})
			}),
			globalConstraint("net_zero_after_2100", func(p model.ParamScope, ix model.Index) model.Outcome {
				if p.Dims().Year(ix.T) < 2100 || !flag(p, "no_pos_emissions_after_budget_year") || !enabled(scalar(p, "budget")) {
					return model.Omit()
				}
				return atMost(func(v model.ValueScope) float64 { return v.ValueAt(global, ix) })
			}),
		}
	})
}
