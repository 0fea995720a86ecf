package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewMitigation prices abatement with a power-law marginal abatement cost
// curve scaled by learning by doing and learning over time. The area under
// the curve is the regional abatement cost; who pays it is decided by the
// emission trade variant.
func NewMitigation() model.Component {
	return newComponent("mitigation", func(b *model.Builder) []model.Relation {
		gamma := b.Param("MAC_gamma", model.Scalar, model.Default(2442), model.Within(model.NonNegative),
			model.Unit("USD2005/tCO2"))
		beta := b.Param("MAC_beta", model.Scalar, model.Default(3), model.Within(model.NonNegative))
		scaling := b.Param("MAC_scaling_factor", model.Region, model.Default(1), model.Within(model.NonNegative))
		b.Param("rel_mitigation_costs_min_level", model.Scalar, model.Default(math.Inf(-1)))
		lbdRate := b.Param("LBD_rate", model.Scalar, model.Default(0.82), model.Bounds(1e-6, 1))
		lbdScaling := b.Param("LBD_scaling", model.Scalar, model.Default(40), model.Bounds(1e-6, math.Inf(1)))
		lotRate := b.Param("LOT_rate", model.Scalar, model.Default(0), model.Within(model.NonNegative))

		lbd := b.Variable("LBD_factor", model.Time)
		lot := b.Variable("LOT_factor", model.Time)
		learning := b.Variable("learning_factor", model.Time)
		price := b.Variable("carbonprice", model.TimeRegion, model.Within(model.NonNegative), model.Unit("USD2005/tCO2"))
		area := b.Variable("area_under_MAC", model.TimeRegion, model.Within(model.NonNegative), model.Unit("trillion USD2005/yr"))
		rel := b.Variable("rel_mitigation_costs", model.TimeRegion, model.Unit("fraction of GDP"))
		globalRel := b.Variable("global_rel_mitigation_costs", model.Time, model.Unit("fraction of GDP"))
		perCost := b.Variable("global_emission_reduction_per_cost_unit", model.Time)
		perReduction := b.Variable("global_cost_per_emission_reduction_unit", model.Time)

		factor := func(s model.Scope) float64 {
			return s.Value(learning) * s.Param(scaling) * s.Param(gamma)
		}
		curveDeps := model.Deps(model.Now(learning), model.Now(scaling), model.Now(gamma), model.Now(beta),
			model.Now("relative_abatement"))

		return []model.Relation{
			model.Define(lbd, model.Deps(model.Now("cumulative_global_baseline_emissions"), model.Now("cumulative_emissions"),
				model.Now(lbdRate), model.Now(lbdScaling)), func(s model.Scope) float64 {
				avoided := s.Value("cumulative_global_baseline_emissions") - s.Value("cumulative_emissions")
				exponent := math.Log(s.Param(lbdRate)) / math.Log(2)
				return math.Pow(softplus(avoided/s.Param(lbdScaling)+1), exponent)
			}),
			model.Define(lot, model.Deps(model.Now(lotRate)), func(s model.Scope) float64 {
				return 1 / math.Pow(1+s.Param(lotRate), float64(s.Time()))
			}),
			model.Define(learning, model.Deps(model.Now(lbd), model.Now(lot)), func(s model.Scope) float64 {
				return s.Value(lbd) * s.Value(lot)
			}),
			model.Define(price, curveDeps, func(s model.Scope) float64 {
				if s.Time() == 0 {
					return 0
				}
				return factor(s) * math.Pow(s.Value("relative_abatement"), s.Param(beta))
			}),
			model.Define(area, append(curveDeps, model.Now("baseline")), func(s model.Scope) float64 {
				e := s.Param(beta) + 1
				ac := factor(s) * math.Pow(s.Value("relative_abatement"), e) / e
				return ac * s.Value("baseline") / 1000
			}),
			model.Define(rel, model.Deps(model.Now("mitigation_costs"), model.Now("GDP_gross")), func(s model.Scope) float64 {
				return s.Value("mitigation_costs") / s.Value("GDP_gross")
			}),
			model.Define(globalRel, model.Deps(model.Now("mitigation_costs"), model.Now("GDP_gross")), func(s model.Scope) float64 {
				return s.Sum("mitigation_costs") / s.Sum("GDP_gross")
			}),
			model.Define(perCost, model.Deps(model.Now("regional_emission_reduction"), model.Now("mitigation_costs")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 0
					}
					return s.Sum("regional_emission_reduction") / softplus(s.Sum("mitigation_costs"))
				}),
			model.Define(perReduction, model.Deps(model.Now("regional_emission_reduction"), model.Now("mitigation_costs")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 0
					}
					return s.Sum("mitigation_costs") / softplus(s.Sum("regional_emission_reduction"))
				}),

			regionalConstraint("rel_mitigation_costs_min_level", func(p model.ParamScope, ix model.Index) model.Outcome {
				level := 0.0
				if ix.T > 0 {
					level = scalar(p, "rel_mitigation_costs_min_level")
				}
				if !enabled(level) {
					return model.Omit()
				}
				return atLeast(func(v model.ValueScope) float64 { return v.ValueAt(rel, ix) - level })
			}),
		}
	})
}
