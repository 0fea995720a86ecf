package sim

import "github.com/san-kum/ecosim/internal/model"

// checkConstraints instantiates every constraint against the bound
// parameters and evaluates the emitted residuals on the finished table.
func checkConstraints(b *model.Bound, tbl *model.Table, tol float64) []Violation {
	view := model.View{Bound: b, Table: tbl}
	var out []Violation
	for _, c := range b.Structure().Constraints() {
		for _, inst := range c.Instantiate(b, b.Dims()) {
			res := inst.Rel.Residual(view)
			if !inst.Rel.Satisfied(res, tol) {
				out = append(out, Violation{
					Constraint: inst.Constraint,
					Index:      inst.Index,
					Sense:      inst.Rel.Sense,
					Residual:   res,
				})
			}
		}
	}
	return out
}

// CheckConstraints evaluates the constraints of b against a table produced
// elsewhere, such as a solver solution.
func CheckConstraints(b *model.Bound, tbl *model.Table, tol float64) []Violation {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return checkConstraints(b, tbl, tol)
}
