package components

import (
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// NewSeaLevelRise integrates thermal expansion, glaciers and small ice caps
// and the Greenland ice sheet from the previous step's temperature.
func NewSeaLevelRise() model.Component {
	return newComponent("sealevelrise", func(b *model.Builder) []model.Relation {
		b.Param("slr_thermal_equil", model.Scalar, model.Default(0.5))
		b.Param("slr_thermal_init", model.Scalar, model.Default(0.0920666936642))
		b.Param("slr_thermal_adjust_rate", model.Scalar, model.Default(0.024076141150722))
		b.Param("slr_gsic_melt_rate", model.Scalar, model.Default(0.0008))
		b.Param("slr_gsic_total_ice", model.Scalar, model.Default(0.26))
		b.Param("slr_gsic_equil_temp", model.Scalar, model.Default(-1))
		b.Param("slr_gis_melt_rate_above_thresh", model.Scalar, model.Default(1.11860082))
		b.Param("slr_gis_init_melt_rate", model.Scalar, model.Default(0.6))
		b.Param("slr_gis_init_ice_vol", model.Scalar, model.Default(7.3))

		nonneg := []model.Option{model.Within(model.NonNegative), model.Unit("m")}
		thermal := b.Variable("slr_thermal", model.Time, nonneg...)
		gsic := b.Variable("slr_cumgsic", model.Time, nonneg...)
		gis := b.Variable("slr_cumgis", model.Time, nonneg...)
		total := b.Variable("total_SLR", model.Time, nonneg...)

		return []model.Relation{
			model.Define(thermal, model.Deps(
				model.Prev(thermal), model.Prev("temperature"), model.Now("T0"),
				model.Now("slr_thermal_equil"), model.Now("slr_thermal_init"), model.Now("slr_thermal_adjust_rate"),
			), func(s model.Scope) float64 {
				equil, rate := s.Param("slr_thermal_equil"), s.Param("slr_thermal_adjust_rate")
				prev := s.Lag(thermal)
				if !prev.Ok() {
					init := s.Param("slr_thermal_init")
					return init + rate*(s.Param("T0")*equil-init)
				}
				step := s.Dims().Dt / 10
				return math.Pow(1-rate, step)*prev.Get() + rate*step*s.Lag("temperature").Get()*equil
			}),
			model.Define(gsic, model.Deps(
				model.Prev(gsic), model.Prev("temperature"),
				model.Now("slr_gsic_melt_rate"), model.Now("slr_gsic_total_ice"), model.Now("slr_gsic_equil_temp"),
			), func(s model.Scope) float64 {
				prev := s.Lag(gsic)
				if !prev.Ok() {
					return 0.015
				}
				melt, ice, equil := s.Param("slr_gsic_melt_rate"), s.Param("slr_gsic_total_ice"), s.Param("slr_gsic_equil_temp")
				cum := prev.Get()
				return cum + melt/ice*s.Dims().Dt*(ice-cum)*(s.Lag("temperature").Get()-equil)
			}),
			model.Define(gis, model.Deps(
				model.Prev(gis), model.Prev("temperature"),
				model.Now("slr_gis_melt_rate_above_thresh"), model.Now("slr_gis_init_melt_rate"), model.Now("slr_gis_init_ice_vol"),
			), func(s model.Scope) float64 {
				prev := s.Lag(gis)
				if !prev.Ok() {
					return 0.006
				}
				above, initRate, vol := s.Param("slr_gis_melt_rate_above_thresh"), s.Param("slr_gis_init_melt_rate"), s.Param("slr_gis_init_ice_vol")
				cum := prev.Get()
				return cum + s.Dims().Dt/10/100*(above*s.Lag("temperature").Get()+initRate)*(1-cum/vol)
			}),
			model.Define(total, model.Deps(model.Now(thermal), model.Now(gsic), model.Now(gis)), func(s model.Scope) float64 {
				return s.Value(thermal) + s.Value(gsic) + s.Value(gis)
			}),
		}
	})
}
