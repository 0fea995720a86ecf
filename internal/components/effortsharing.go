package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewNoRegime imposes no effort sharing.
func NewNoRegime() model.Component {
	return newComponent("noregime", func(*model.Builder) []model.Relation { return nil })
}

func participation(b *model.Builder) string {
	return b.Param("effort_sharing_participation", model.Region, model.Default(1), model.Within(model.Fraction),
		model.Doc("1 if the region takes part in the effort sharing regime"))
}

// NewEqualMitigationCosts requires every participating region to spend the
// same share of GDP on abatement.
func NewEqualMitigationCosts() model.Component {
	return newComponent("equal_mitigation_costs", func(b *model.Builder) []model.Relation {
		part := participation(b)
		level := b.Variable("effort_sharing_common_level", model.Time, model.Unit("fraction of GDP"))

		return []model.Relation{
			model.Define(level, model.Deps(model.Now("global_rel_mitigation_costs")), func(s model.Scope) float64 {
				return s.Value("global_rel_mitigation_costs")
			}),
			regionalConstraint("effort_sharing_regime_mitigation_costs", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 || p.ParamAt(part, ix) == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 {
					return v.ValueAt("rel_mitigation_costs", ix) - v.ValueAt(level, ix)
				})
			}),
		}
	})
}

// NewEqualTotalCosts equalises abatement costs plus damages plus transfers
// as a share of GDP until 2100.
func NewEqualTotalCosts() model.Component {
	return newComponent("equal_total_costs", func(b *model.Builder) []model.Relation {
		part := participation(b)
		level := b.Variable("effort_sharing_common_level", model.Time, model.Unit("fraction of GDP"))

		return []model.Relation{
			model.Define(level, model.Deps(
				model.Now("mitigation_costs"), model.Now("damage_costs"), model.Now("financial_transfer"),
				model.Now("GDP_gross"), model.Now("global_GDP_gross"),
			), func(s model.Scope) float64 {
				total := s.Sum("mitigation_costs") + productSum(s, "damage_costs", "GDP_gross") + s.Sum("financial_transfer")
				return total / s.Value("global_GDP_gross")
			}),
			regionalConstraint("effort_sharing_regime_total_costs", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 || p.Dims().Year(ix.T) > 2100 || p.ParamAt(part, ix) == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 {
					own := v.ValueAt("rel_mitigation_costs", ix) + v.ValueAt("damage_costs", ix) + v.ValueAt("rel_financial_transfer", ix)
					return own - v.ValueAt(level, ix)
				})
			}),
		}
	})
}

// NewPerCapConvergence moves the allowances from grandfathering in the first
// year to equal per capita emissions in percapconv_year. An infinite
// convergence year keeps grandfathering throughout.
func NewPerCapConvergence() model.Component {
	return newComponent("per_cap_convergence", func(b *model.Builder) []model.Relation {
		part := participation(b)
		year := b.Param("percapconv_year", model.Scalar, model.Default(2050), model.Unit("year"),
			model.Doc("year from which allowances are equal per capita"))
		share := b.Variable("percapconv_share", model.TimeRegion, model.Unit("fraction"))

		return []model.Relation{
			model.Define(share, model.Deps(
				model.Now("population"), model.Now("global_population"), model.Now("baseline_emissions"), model.Now(year),
			), func(s model.Scope) float64 {
				r := s.Region()
				initial := 0.0
				for q := range s.Dims().Regions {
					initial += s.ParamAt("baseline_emissions", model.At(0, q))
				}
				initial = s.ParamAt("baseline_emissions", model.At(0, r)) / initial
				perCap := s.Param("population") / s.Value("global_population")
				return convergenceShare(s.Year(), s.Dims().BeginYear, s.Param(year), initial, perCap)
			}),
			regionalConstraint("percapconv_rule", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 || p.ParamAt(part, ix) == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 {
					return v.ValueAt(share, ix)*v.ValueAt("global_emissions", ix) - v.ValueAt("regional_emission_allowances", ix)
				})
			}),
		}
	})
}

// convergenceShare interpolates linearly from the grandfathered share at
// begin to the per capita share at conv, and holds the latter afterwards.
func convergenceShare(year, begin, conv, grandfathered, perCap float64) float64 {
	if conv == begin {
		return perCap
	}
	x := (year - begin) / (conv - begin)
	return math.Min(x, 1)*perCap + math.Max(1-x, 0)*grandfathered
}

// NewAbilityToPay allocates the global reduction effort by baseline
// emissions, scaled with the cube root of relative per capita GDP, and
// rescales so the reductions add up to the global effort.
func NewAbilityToPay() model.Component {
	return newComponent("ability_to_pay", func(b *model.Builder) []model.Relation {
		part := participation(b)
		before := b.Variable("effortsharing_AP_reductions_before_correction", model.TimeRegion, model.Unit("GtCO2/yr"))
		factor := b.Variable("effortsharing_AP_inv_correction_factor", model.Time)
		allowances := b.Variable("effortsharing_AP_allowances", model.TimeRegion, model.Unit("GtCO2/yr"))

		return []model.Relation{
			model.Define(before, model.Deps(
				model.Now("baseline_GDP"), model.Now("population"), model.Now("global_baseline_GDP"),
				model.Now("global_population"), model.Now("baseline"), model.Now("global_emissions"),
			), func(s model.Scope) float64 {
				perCap := s.Param("baseline_GDP") / s.Param("population")
				globalPerCap := s.Value("global_baseline_GDP") / s.Value("global_population")
				globalBaseline := s.Sum("baseline")
				effort := (globalBaseline - s.Value("global_emissions")) / globalBaseline
				return math.Cbrt(perCap/globalPerCap) * effort * s.Value("baseline")
			}),
			model.Define(factor, model.Deps(model.Now("baseline"), model.Now("global_emissions"), model.Now(before)),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 1
					}
					return (s.Sum("baseline") - s.Value("global_emissions")) / softplus(s.Sum(before))
				}),
			model.Define(allowances, model.Deps(model.Now("baseline"), model.Now(before), model.Now(factor)),
				func(s model.Scope) float64 {
					return s.Value("baseline") - s.Value(before)*s.Value(factor)
				}),
			regionalConstraint("effortsharing_AP_rule", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 || p.ParamAt(part, ix) == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 {
					return v.ValueAt(allowances, ix) - v.ValueAt("regional_emission_allowances", ix)
				})
			}),
		}
	})
}

// NewEqualCumulativePerCap entitles every region to its population share of
// the yearly global emissions plus its historical debt, and requires the
// entitlement to be used up by the last step. The debt is the discounted
// historical shortfall against the per capita share; regions that emitted
// more than their share carry a negative debt.
func NewEqualCumulativePerCap() model.Component {
	return newComponent("equal_cumulative_per_cap", func(b *model.Builder) []model.Relation {
		part := participation(b)
		debt := b.Param("effort_sharing_ecpc_debt", model.Region, model.Default(0), model.Unit("GtCO2"),
			model.Doc("historical emissions below the per capita share, discounted to the first year"))
		fair := b.Variable("effort_sharing_ecpc_fair_share", model.TimeRegion, model.Unit("GtCO2/yr"))
		balance := b.Variable("effort_sharing_ecpc_balance", model.TimeRegion, model.Unit("GtCO2"))

		return []model.Relation{
			model.Define(fair, model.Deps(model.Now("population"), model.Now("global_population"), model.Now("global_emissions")),
				func(s model.Scope) float64 {
					return s.Param("population") / s.Value("global_population") * s.Value("global_emissions")
				}),
			model.Define(balance, model.Deps(
				model.Prev(balance), model.Now(debt), model.Now(fair), model.Now("regional_emission_allowances"),
			), func(s model.Scope) float64 {
				prev := s.Lag(balance)
				if !prev.Ok() {
					return s.Param(debt)
				}
				return prev.Get() + s.Dims().Dt*(s.Value(fair)-s.Value("regional_emission_allowances"))
			}),
			regionalConstraint("effort_sharing_ecpc_budget", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T != p.Dims().Steps-1 || p.ParamAt(part, ix) == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 {
					return v.ValueAt(balance, ix)
				})
			}),
		}
	})
}
