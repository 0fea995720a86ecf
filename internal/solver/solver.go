// Package solver defines the boundary to an external nonlinear solver.
//
// The engine does not solve optimisation problems itself. An [Adapter]
// receives a [Problem] (the frozen structure, the bound model, the
// instantiated constraints and the objective) and returns a [Solution] whose
// table has the same shape as a simulation result.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/ecosim/internal/model"
)

// Status is the terminal outcome of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Diverged
	TimedOut
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Diverged:
		return "diverged"
	case TimedOut:
		return "timed out"
	default:
		return "error"
	}
}

// ErrNotOptimal is matched by StatusError.
var ErrNotOptimal = errors.New("solver: no optimal solution")

// StatusError reports a terminal status other than Optimal.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("solver finished %s", e.Status)
	}
	return fmt.Sprintf("solver finished %s: %s", e.Status, e.Message)
}

func (e *StatusError) Is(target error) bool { return target == ErrNotOptimal }

// Problem is what an adapter translates into its native form.
type Problem struct {
	Structure   *model.Structure
	Bound       *model.Bound
	Relations   []model.Relation
	Constraints []model.Instance
	Objective   *model.Objective
	// WarmStart is an optional initial guess, typically a simulation result.
	WarmStart *model.Table
}

// NewProblem instantiates every constraint of the bound model.
func NewProblem(b *model.Bound, warm *model.Table) (*Problem, error) {
	st := b.Structure()
	obj, ok := st.Objective()
	if !ok {
		return nil, model.Configf("objective", "composition declares no objective")
	}
	p := &Problem{
		Structure: st,
		Bound:     b,
		Relations: st.Relations(),
		Objective: obj,
		WarmStart: warm,
	}
	for _, c := range st.Constraints() {
		p.Constraints = append(p.Constraints, c.Instantiate(b, b.Dims())...)
	}
	return p, nil
}

type Solution struct {
	Status         Status
	Table          *model.Table
	ObjectiveValue float64
	Message        string
}

// Err returns nil for Optimal and a StatusError otherwise.
func (s *Solution) Err() error {
	if s.Status == Optimal {
		return nil
	}
	return &StatusError{Status: s.Status, Message: s.Message}
}

type Adapter interface {
	Name() string
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}
