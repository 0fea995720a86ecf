package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewNoDamage sets damages to zero.
func NewNoDamage() model.Component {
	return newComponent("nodamage", func(b *model.Builder) []model.Relation {
		dmg := b.Variable("damage_costs", model.TimeRegion, model.Unit("fraction of GDP"))
		return []model.Relation{
			model.Define(dmg, nil, func(model.Scope) float64 { return 0 }),
		}
	})
}

// NewQuadraticDamage is a regional power-law damage function of warming,
// a1*T + a2*T^a3, measured relative to the initial temperature.
func NewQuadraticDamage() model.Component {
	return newComponent("quadratic", func(b *model.Builder) []model.Relation {
		b.Param("damage_scale_factor", model.Scalar, model.Default(1))
		b.Param("damage_a1", model.Region, model.Default(0))
		b.Param("damage_a2", model.Region, model.Default(0.00236))
		b.Param("damage_a3", model.Region, model.Default(2))

		dmg := b.Variable("damage_costs", model.TimeRegion, model.Unit("fraction of GDP"))

		return []model.Relation{
			model.Define(dmg, model.Deps(
				model.Now("temperature"), model.Now("T0"), model.Now("damage_scale_factor"),
				model.Now("damage_a1"), model.Now("damage_a2"), model.Now("damage_a3"),
			), func(s model.Scope) float64 {
				a1, a2, a3 := s.Param("damage_a1"), s.Param("damage_a2"), s.Param("damage_a3")
				f := func(temp float64) float64 { return a1*temp + a2*math.Pow(temp, a3) }
				return s.Param("damage_scale_factor") * (f(softplus(s.Value("temperature"))) - f(s.Param("T0")))
			}),
		}
	})
}

// Functional forms of the COACCH damage curves, bound per region.
const (
	FormLinear    = 0
	FormQuadratic = 1
	FormLogistic  = 2
)

// coacchCurve holds the parameter names of one COACCH damage curve.
type coacchCurve struct{ form, b1, b2, b3, a string }

func newCoacchCurve(b *model.Builder, prefix string) coacchCurve {
	c := coacchCurve{
		form: prefix + "_form",
		b1:   prefix + "_b1",
		b2:   prefix + "_b2",
		b3:   prefix + "_b3",
		a:    prefix + "_a",
	}
	b.Param(c.form, model.Region, model.Default(FormQuadratic), model.Bounds(FormLinear, FormLogistic),
		model.Doc("0 linear, 1 quadratic, 2 logistic"))
	b.Param(c.b1, model.Region, model.Default(0))
	b.Param(c.b2, model.Region, model.Default(0))
	b.Param(c.b3, model.Region, model.Default(0))
	b.Param(c.a, model.Region, model.Default(1))
	return c
}

func (c coacchCurve) deps() []model.Ref {
	return model.Deps(model.Now(c.form), model.Now(c.b1), model.Now(c.b2), model.Now(c.b3), model.Now(c.a))
}

// eval returns the damage in fraction of GDP at x.
func (c coacchCurve) eval(s model.Scope, x float64) float64 {
	b1, b2, b3, a := s.Param(c.b1), s.Param(c.b2), s.Param(c.b3), s.Param(c.a)
	switch int(math.Round(s.Param(c.form))) {
	case FormLinear:
		return a * b1 * x / 100
	case FormLogistic:
		exponent := model.SoftMax(-b3*x, 10, 0.1)
		return a * (b1/(1+b2*math.Exp(exponent)) - b1/(1+b2)) / 100
	default:
		return a * (b1*x + b2*x*x) / 100
	}
}

// NewCOACCHDamage adds temperature driven and sea level driven damages, each
// relative to its starting point.
func NewCOACCHDamage() model.Component {
	return newComponent("coacch", func(b *model.Builder) []model.Relation {
		b.Param("damage_scale_factor", model.Scalar, model.Default(1))
		noslr := newCoacchCurve(b, "damage_noslr")
		slr := newCoacchCurve(b, "damage_slr")

		dmg := b.Variable("damage_costs", model.TimeRegion, model.Unit("fraction of GDP"))
		nonSLR := b.Variable("damage_costs_non_slr", model.TimeRegion, model.Unit("fraction of GDP"))
		slrCosts := b.Variable("damage_costs_slr", model.TimeRegion, model.Bounds(-0.5, 0.7), model.Unit("fraction of GDP"))
		slrRef := b.Variable("initial_total_SLR", model.Time, model.Unit("m"))

		return []model.Relation{
			model.Define(nonSLR,
				append(noslr.deps(), model.Now("temperature"), model.Now("T0"), model.Now("damage_scale_factor")),
				func(s model.Scope) float64 {
					x, x0 := s.Value("temperature")-0.6, s.Param("T0")-0.6
					return s.Param("damage_scale_factor") * (noslr.eval(s, x) - noslr.eval(s, x0))
				}),
			model.Define(slrRef, model.Deps(model.Now("total_SLR"), model.Prev(slrRef)), func(s model.Scope) float64 {
				return s.Lag(slrRef).Or(s.Value("total_SLR"))
			}),
			model.Define(slrCosts,
				append(slr.deps(), model.Now("total_SLR"), model.Now(slrRef), model.Now("damage_scale_factor")),
				func(s model.Scope) float64 {
					return s.Param("damage_scale_factor") * (slr.eval(s, s.Value("total_SLR")) - slr.eval(s, s.Value(slrRef)))
				}),
			model.Define(dmg, model.Deps(model.Now(nonSLR), model.Now(slrCosts)), func(s model.Scope) float64 {
				return s.Value(nonSLR) + s.Value(slrCosts)
			}),
		}
	})
}
