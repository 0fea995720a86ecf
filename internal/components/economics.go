package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewEconomics is a regional Cobb-Douglas economy. Total factor productivity
// is calibrated so that an economy without damages or policy reproduces the
// baseline GDP; net GDP subtracts damages, abatement costs and transfers.
func NewEconomics() model.Component {
	return newComponent("economics", func(b *model.Builder) []model.Relation {
		initK := b.Param("init_capitalstock_factor", model.Region, model.Default(2.8), model.Within(model.NonNegative))
		alpha := b.Param("alpha", model.Scalar, model.Default(0.3), model.Within(model.Fraction))
		dk := b.Param("dk", model.Scalar, model.Default(0.1), model.Within(model.Fraction))
		sr := b.Param("sr", model.Scalar, model.Default(0.21), model.Within(model.Fraction))
		ignore := b.Param("ignore_damages", model.Scalar, model.Default(0))

		money := model.Unit("trillion USD2005/yr")
		baseK := b.Variable("baseline_capital_stock", model.TimeRegion, model.Unit("trillion USD2005"))
		tfp := b.Variable("TFP", model.TimeRegion)
		capital := b.Variable("capital_stock", model.TimeRegion, model.Unit("trillion USD2005"))
		gross := b.Variable("GDP_gross", model.TimeRegion, money)
		globalGross := b.Variable("global_GDP_gross", model.Time, money)
		net := b.Variable("GDP_net", model.TimeRegion, money)
		globalNet := b.Variable("global_GDP_net", model.Time, money)
		investments := b.Variable("investments", model.TimeRegion, money)
		consumption := b.Variable("consumption", model.TimeRegion, money)

		initial := func(s model.Scope) float64 {
			return s.Param(initK) * s.ParamAt("baseline_GDP", model.At(0, s.Region()))
		}

		return []model.Relation{
			model.Define(baseK, model.Deps(model.Prev(baseK), model.Now(initK), model.Now("baseline_GDP"), model.Now(dk), model.Now(sr)),
				func(s model.Scope) float64 {
					prev := s.Lag(baseK)
					if !prev.Ok() {
						return initial(s)
					}
					invest := s.Param(sr) * s.ParamAt("baseline_GDP", model.At(s.Time()-1, s.Region()))
					return nextCapital(prev.Get(), s.Param(dk), invest, s.Dims().Dt)
				}),
			model.Define(tfp, model.Deps(model.Now(baseK), model.Now("baseline_GDP"), model.Now("population"), model.Now(alpha)),
				func(s model.Scope) float64 {
					return s.Param("baseline_GDP") / cobbDouglas(1, s.Param("population"), s.Value(baseK), s.Param(alpha))
				}),
			model.Define(capital, model.Deps(model.Prev(capital), model.Prev(investments), model.Now(initK), model.Now("baseline_GDP"), model.Now(dk)),
				func(s model.Scope) float64 {
					prev := s.Lag(capital)
					if !prev.Ok() {
						return initial(s)
					}
					return nextCapital(prev.Get(), s.Param(dk), s.Lag(investments).Get(), s.Dims().Dt)
				}),
			model.Define(gross, model.Deps(model.Now(tfp), model.Now("population"), model.Now(capital), model.Now(alpha), model.Now("baseline_GDP")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return s.Param("baseline_GDP")
					}
					k := model.SoftPositive(s.Value(capital), 10)
					return cobbDouglas(s.Value(tfp), s.Param("population"), k, s.Param(alpha))
				}),
			model.Define(globalGross, model.Deps(model.Now(gross)), func(s model.Scope) float64 {
				return s.Sum(gross)
			}),
			model.Define(net, model.Deps(model.Now(gross), model.Now("damage_costs"), model.Now(ignore),
				model.Now("mitigation_costs"), model.Now("financial_transfer")),
				func(s model.Scope) float64 {
					damages := s.Value("damage_costs")
					if s.Param(ignore) != 0 {
						damages = 0
					}
					return s.Value(gross)*(1-damages) - s.Value("mitigation_costs") - s.Value("financial_transfer")
				}),
			model.Define(globalNet, model.Deps(model.Now(net)), func(s model.Scope) float64 {
				return s.Sum(net)
			}),
			model.Define(investments, model.Deps(model.Now(sr), model.Now(net)), func(s model.Scope) float64 {
				return s.Param(sr) * s.Value(net)
			}),
			model.Define(consumption, model.Deps(model.Now(sr), model.Now(net)), func(s model.Scope) float64 {
				return (1 - s.Param(sr)) * s.Value(net)
			}),
		}
	})
}

// nextCapital advances a capital stock by one step of length dt with
// depreciation rate dk and investments i.
func nextCapital(k, dk, i, dt float64) float64 {
	dkdt := (math.Pow(1-dk, dt)-1)/dt*k + i
	return k + dt*dkdt
}

func cobbDouglas(tfp, labour, capital, alpha float64) float64 {
	return tfp * math.Pow(labour, 1-alpha) * math.Pow(capital, alpha)
}
