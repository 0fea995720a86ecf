package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewTemperature maps cumulative emissions to warming through the transient
// climate response to cumulative emissions.
func NewTemperature() model.Component {
	return newComponent("temperature", func(b *model.Builder) []model.Relation {
		t0 := b.Param("T0", model.Scalar, model.Default(1.2), model.Unit("degC above PI"))
		tcre := b.Param("TCRE", model.Scalar, model.Default(0.00062), model.Within(model.NonNegative),
			model.Unit("degC/GtCO2"))
		b.Param("temperature_target", model.Scalar, model.Default(math.Inf(1)), model.Unit("degC above PI"))
		b.Param("perc_reversible_damages", model.Scalar, model.Default(1), model.Within(model.Fraction))

		temp := b.Variable("temperature", model.Time, model.Unit("degC above PI"))

		return []model.Relation{
			model.Define(temp, model.Deps(model.Now(t0), model.Now(tcre), model.Now("cumulative_emissions")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return s.Param(t0)
					}
					return s.Param(t0) + s.Param(tcre)*s.Value("cumulative_emissions")
				}),
			globalConstraint("temperature_target", func(p model.ParamScope, ix model.Index) model.Outcome {
				target := scalar(p, "temperature_target")
				if p.Dims().Year(ix.T) < 2100 || !enabled(target) {
					return model.Omit()
				}
				return atMost(func(v model.ValueScope) float64 { return v.ValueAt(temp, ix) - target })
			}),
		}
	})
}
