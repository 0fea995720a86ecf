package components

import "github.com/san-kum/ecosim/internal/model"

func prtp(b *model.Builder) string {
	return b.Param("PRTP", model.Scalar, model.Default(0.015), model.Within(model.NonNegative),
		model.Doc("pure rate of time preference"))
}

// NewUtilityObjective maximises the discounted sum of yearly welfare.
func NewUtilityObjective() model.Component {
	return newComponent("utility", func(b *model.Builder) []model.Relation {
		rate := prtp(b)
		npv := b.Variable("NPV", model.Time)

		return []model.Relation{
			model.Define(npv, model.Deps(model.Prev(npv), model.Now("yearly_welfare"), model.Now(rate)),
				func(s model.Scope) float64 {
					prev := s.Lag(npv)
					if !prev.Ok() {
						return 0
					}
					return prev.Get() + s.Dims().Dt*discount(s, s.Param(rate))*s.Value("yearly_welfare")
				}),
			&model.Objective{Variable: npv, Direction: model.Maximize},
		}
	})
}

// NewGlobalCostsObjective minimises discounted abatement costs plus damages.
func NewGlobalCostsObjective() model.Component {
	return newComponent("globalcosts", func(b *model.Builder) []model.Relation {
		rate := prtp(b)
		npv := b.Variable("NPV", model.Time, model.Unit("trillion USD2005"))

		return []model.Relation{
			model.Define(npv, model.Deps(model.Prev(npv), model.Now("mitigation_costs"), model.Now("damage_costs"),
				model.Now("GDP_gross"), model.Now(rate)),
				func(s model.Scope) float64 {
					prev := s.Lag(npv)
					if !prev.Ok() {
						return 0
					}
					costs := s.Sum("mitigation_costs") + productSum(s, "damage_costs", "GDP_gross")
					return prev.Get() + s.Dims().Dt*discount(s, s.Param(rate))*costs
				}),
			&model.Objective{Variable: npv, Direction: model.Minimize},
		}
	})
}
