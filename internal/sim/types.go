package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/ecosim/internal/model"
)

// Controls supplies values for control variables. Lookup reports false
// when neither a value nor a default exists for (name, ix).
type Controls interface {
	Lookup(name string, ix model.Index) (float64, bool)
	Names() []string
}

// Step is what metrics and observers see after a time step completes.
// The table holds every value up to and including Step.
type Step struct {
	Index int
	Year  float64
	Table *model.Table
}

type Metric interface {
	Name() string
	Observe(s Step)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Step)
}

type Config struct {
	// Strict turns numerical warnings into run failures.
	Strict bool
	// Workers > 1 evaluates the regions of a node concurrently.
	Workers int
	// Tolerance for the post-run constraint check. Zero means DefaultTolerance.
	Tolerance float64
	// AuditDependencies reports declared references a rule never read.
	AuditDependencies bool
}

const DefaultTolerance = 1e-6

// Violation is an emitted constraint instance not satisfied by the run.
type Violation struct {
	Constraint string
	Index      model.Index
	Sense      model.Sense
	Residual   float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s%s: residual %g (%s 0)", v.Constraint, v.Index, v.Residual, v.Sense)
}

type Result struct {
	Table      *model.Table
	Warnings   []*model.NumericalWarning
	Violations []Violation
	// UnusedDependencies maps an equation target to declared refs it never read.
	UnusedDependencies map[string][]model.Ref
	Metrics            map[string]float64
	StepsTaken         int
	Elapsed            time.Duration
}

// StepError wraps an evaluation failure with the cell that caused it.
type StepError struct {
	Step     int
	Year     float64
	Variable string
	Index    model.Index
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%g) %s%s: %v", e.Step, e.Year, e.Variable, e.Index, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
