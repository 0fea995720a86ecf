package components

import "github.com/san-kum/ecosim/internal/model"

// NewBaseline declares the exogenous scenario: population, GDP and
// emissions without climate policy, and the cumulative baseline emissions
// derived from them.
func NewBaseline() model.Component {
	return newComponent("baseline", func(b *model.Builder) []model.Relation {
		pop := b.Param("population", model.TimeRegion, model.Within(model.NonNegative), model.Unit("billion"))
		gdp := b.Param("baseline_GDP", model.TimeRegion, model.Within(model.NonNegative), model.Unit("trillion USD2005/yr"))
		emis := b.Param("baseline_emissions", model.TimeRegion, model.Unit("GtCO2/yr"))

		globalPop := b.Variable("global_population", model.Time, model.Unit("billion"))
		cum := b.Variable("cumulative_baseline_emissions", model.TimeRegion, model.Unit("GtCO2"))
		globalCum := b.Variable("cumulative_global_baseline_emissions", model.Time, model.Unit("GtCO2"))
		b.Variable("global_baseline_GDP", model.Time, model.Unit("trillion USD2005/yr"))

		return []model.Relation{
			model.Define(globalPop, model.Deps(model.Now(pop)), func(s model.Scope) float64 {
				return s.Sum(pop)
			}),
			// trapezoidal integral of the baseline over the years so far
			model.Define(cum, model.Deps(model.Prev(cum), model.Now(emis)), func(s model.Scope) float64 {
				prev := s.Lag(cum)
				if !prev.Ok() {
					return 0
				}
				t, r := s.Time(), s.Region()
				now := s.ParamAt(emis, model.At(t, r))
				before := s.ParamAt(emis, model.At(t-1, r))
				return prev.Get() + s.Dims().Dt*(now+before)/2
			}),
			model.Define(globalCum, model.Deps(model.Now(cum)), func(s model.Scope) float64 {
				return s.Sum(cum)
			}),
			model.Define("global_baseline_GDP", model.Deps(model.Now(gdp)), func(s model.Scope) float64 {
				return s.Sum(gdp)
			}),
		}
	})
}
