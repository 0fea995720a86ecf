package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/ecosim/internal/model"
)

// Feasibility is an adapter that performs no optimisation: it accepts the
// warm start as the solution when it satisfies every constraint instance.
// It is used to validate prerun trajectories and to test adapter wiring.
type Feasibility struct {
	Tolerance float64
}

func (Feasibility) Name() string { return "feasibility" }

func (f Feasibility) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if p.WarmStart == nil {
		return &Solution{Status: Error, Message: "no warm start to check"}, nil
	}
	tol := f.Tolerance
	if tol <= 0 {
		tol = 1e-6
	}
	view := model.View{Bound: p.Bound, Table: p.WarmStart}
	for i, inst := range p.Constraints {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return &Solution{Status: TimedOut, Message: err.Error()}, nil
				}
				return nil, err
			}
		}
		if res := inst.Rel.Residual(view); !inst.Rel.Satisfied(res, tol) {
			return &Solution{
				Status:  Infeasible,
				Table:   p.WarmStart,
				Message: fmt.Sprintf("%s%s residual %g", inst.Constraint, inst.Index, res),
			}, nil
		}
	}
	return &Solution{
		Status:         Optimal,
		Table:          p.WarmStart,
		ObjectiveValue: p.WarmStart.Final(p.Objective.Variable),
	}, nil
}
