package components

import "github.com/san-kum/ecosim/internal/model"

// NewNoTrade makes every region pay for its own abatement.
func NewNoTrade() model.Component {
	return newComponent("notrade", func(b *model.Builder) []model.Relation {
		b.Param("import_export_emission_reduction_balance", model.TimeRegion, model.Default(0), model.Unit("GtCO2/yr"))
		b.Param("import_export_mitigation_cost_balance", model.TimeRegion, model.Default(0), model.Unit("trillion USD2005/yr"))
		costs := b.Variable("mitigation_costs", model.TimeRegion, model.Unit("trillion USD2005/yr"))
		allowances := b.Variable("regional_emission_allowances", model.TimeRegion, model.Unit("GtCO2/yr"))

		return []model.Relation{
			model.Define(costs, model.Deps(model.Now("area_under_MAC")), func(s model.Scope) float64 {
				return s.Value("area_under_MAC")
			}),
			model.Define(allowances, model.Deps(model.Now("regional_emissions")), func(s model.Scope) float64 {
				return s.Value("regional_emissions")
			}),
		}
	})
}

// NewGlobalCostPool pools abatement costs worldwide and shares them in
// proportion to gross GDP. Regions that pay more than their own abatement
// buy emission reductions elsewhere.
func NewGlobalCostPool() model.Component {
	return newComponent("globalcostpool", func(b *model.Builder) []model.Relation {
		costs := b.Variable("mitigation_costs", model.TimeRegion, model.Unit("trillion USD2005/yr"))
		paid := b.Variable("paid_for_emission_reductions", model.TimeRegion, model.Unit("GtCO2/yr"))
		reductionBalance := b.Variable("import_export_emission_reduction_balance", model.TimeRegion, model.Unit("GtCO2/yr"))
		costBalance := b.Variable("import_export_mitigation_cost_balance", model.TimeRegion, model.Unit("trillion USD2005/yr"))
		allowances := b.Variable("regional_emission_allowances", model.TimeRegion, model.Unit("GtCO2/yr"))

		return []model.Relation{
			model.Define(costs, model.Deps(model.Now("area_under_MAC"), model.Now("GDP_gross"), model.Now("global_GDP_gross")),
				func(s model.Scope) float64 {
					return s.Sum("area_under_MAC") * s.Value("GDP_gross") / s.Value("global_GDP_gross")
				}),
			model.Define(paid, model.Deps(model.Now(costs), model.Now("global_emission_reduction_per_cost_unit")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 0
					}
					return s.Value(costs) * s.Value("global_emission_reduction_per_cost_unit")
				}),
			model.Define(reductionBalance, model.Deps(model.Now(paid), model.Now("regional_emission_reduction")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 0
					}
					return s.Value(paid) - s.Value("regional_emission_reduction")
				}),
			model.Define(costBalance, model.Deps(model.Now(costs), model.Now("area_under_MAC")), func(s model.Scope) float64 {
				return s.Value(costs) - s.Value("area_under_MAC")
			}),
			model.Define(allowances, model.Deps(model.Now("regional_emissions"), model.Now(reductionBalance)),
				func(s model.Scope) float64 {
					return s.Value("regional_emissions") - s.Value(reductionBalance)
				}),

			globalConstraint("sum_abatement_equals_sum_area_under_mac", func(p model.ParamScope, ix model.Index) model.Outcome {
				return equal(func(v model.ValueScope) float64 {
					return regionSum(v, costs, ix.T) - regionSum(v, "area_under_MAC", ix.T)
				})
			}),
		}
	})
}
