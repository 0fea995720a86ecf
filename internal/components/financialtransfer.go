package components

import "github.com/san-kum/ecosim/internal/model"

// NewNoTransfer binds the transfers to zero.
func NewNoTransfer() model.Component {
	return newComponent("notransfer", func(b *model.Builder) []model.Relation {
		b.Param("financial_transfer", model.TimeRegion, model.Default(0), model.Unit("trillion USD2005/yr"))
		b.Param("rel_financial_transfer", model.TimeRegion, model.Default(0), model.Unit("fraction of GDP"))
		return nil
	})
}

// NewGlobalDamagePool redistributes damages so that every region bears the
// same share of its gross GDP. Positive transfers are payments.
func NewGlobalDamagePool() model.Component {
	return newComponent("globaldamagepool", func(b *model.Builder) []model.Relation {
		transfer := b.Variable("financial_transfer", model.TimeRegion, model.Unit("trillion USD2005/yr"))
		rel := b.Variable("rel_financial_transfer", model.TimeRegion, model.Unit("fraction of GDP"))

		return []model.Relation{
			model.Define(transfer, model.Deps(model.Now("damage_costs"), model.Now("GDP_gross"), model.Now("global_GDP_gross")),
				func(s model.Scope) float64 {
					if s.Time() == 0 {
						return 0
					}
					pooled := productSum(s, "damage_costs", "GDP_gross")
					gdp := s.Value("GDP_gross")
					return pooled*gdp/s.Value("global_GDP_gross") - s.Value("damage_costs")*gdp
				}),
			model.Define(rel, model.Deps(model.Now(transfer), model.Now("GDP_gross")), func(s model.Scope) float64 {
				return s.Value(transfer) / s.Value("GDP_gross")
			}),

			globalConstraint("zero_sum_of_yearly_financial_transfer", func(p model.ParamScope, ix model.Index) model.Outcome {
				if ix.T == 0 {
					return model.Omit()
				}
				return equal(func(v model.ValueScope) float64 { return regionSum(v, transfer, ix.T) })
			}),
			regionalConstraint("received_financial_transfer_max_own_damages", func(p model.ParamScope, ix model.Index) model.Outcome {
				return atLeast(func(v model.ValueScope) float64 {
					return v.ValueAt(transfer, ix) + v.ValueAt("damage_costs", ix)*v.ValueAt("GDP_gross", ix)
				})
			}),
		}
	})
}
