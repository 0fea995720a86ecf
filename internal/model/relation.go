package model

import "fmt"

// Relation is anything a component contributes to the system:
// *Equation, *Constraint or *Objective.
type Relation interface {
	Label() string
	relation()
}

// Ref is a declared read of a variable or parameter. Lag 0 reads the current
// time step, Lag k >= 1 reads step t-k.
type Ref struct {
	Name string
	Lag  int
}

func (r Ref) String() string {
	if r.Lag == 0 {
		return r.Name
	}
	return fmt.Sprintf("%s[t-%d]", r.Name, r.Lag)
}

// Now declares a same-time read.
func Now(name string) Ref { return Ref{Name: name} }

// Prev declares a read of the previous time step.
func Prev(name string) Ref { return Ref{Name: name, Lag: 1} }

// Lag declares a read k steps back.
func Lag(name string, k int) Ref { return Ref{Name: name, Lag: k} }

// Deps collects refs; it reads better than a slice literal in component code.
func Deps(refs ...Ref) []Ref { return refs }

// Rule computes the value of an equation's target at the scope's index.
type Rule func(s Scope) float64

// Equation defines Target from Rule. Deps lists every variable and parameter
// the rule reads, with the lag it reads them at. An equation takes its
// target's shape at freeze time unless In pins one.
type Equation struct {
	Name   string
	Target string
	Deps   []Ref
	Rule   Rule

	shape    Shape
	hasShape bool
}

// In pins the shape the equation is written for. Freeze rejects it when the
// target is declared with a different shape.
func (e *Equation) In(s Shape) *Equation {
	e.shape, e.hasShape = s, true
	return e
}

// Shape is the pinned shape, or the target's shape once frozen.
func (e *Equation) Shape() Shape { return e.shape }

func (e *Equation) clone() *Equation {
	c := *e
	c.Deps = append([]Ref(nil), e.Deps...)
	return &c
}

func (e *Equation) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Target
}

func (*Equation) relation() {}

// Define is shorthand for an equation named after its target.
func Define(target string, deps []Ref, rule Rule) *Equation {
	return &Equation{Target: target, Deps: deps, Rule: rule}
}

// Sense is the direction of a relation or objective.
type Sense int

const (
	EQ Sense = iota
	LE
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

// Residual evaluates lhs - rhs of a relation against computed values.
type Residual func(v ValueScope) float64

// Rel is the relation imposed by one constraint instance.
type Rel struct {
	Sense    Sense
	Residual Residual
}

// Satisfied reports whether residual r meets the sense within tol.
func (r Rel) Satisfied(res, tol float64) bool {
	switch r.Sense {
	case LE:
		return res <= tol
	case GE:
		return res >= -tol
	default:
		return res <= tol && res >= -tol
	}
}

// Outcome is the tagged result of a constraint rule at one index.
type Outcome struct {
	rel     Rel
	emitted bool
}

// Emit returns an outcome carrying rel.
func Emit(rel Rel) Outcome { return Outcome{rel: rel, emitted: true} }

// Omit returns an outcome that drops the constraint at this index.
func Omit() Outcome { return Outcome{} }

func (o Outcome) Emitted() bool { return o.emitted }

func (o Outcome) Relation() (Rel, bool) { return o.rel, o.emitted }

// ConstraintRule decides, from parameters and the index alone, whether the
// constraint applies and which relation it imposes.
type ConstraintRule func(p ParamScope, ix Index) Outcome

// Constraint is a general relation with no target variable. It takes no
// part in dependency analysis.
type Constraint struct {
	Name  string
	Shape Shape
	Rule  ConstraintRule
}

func (c *Constraint) Label() string { return c.Name }

func (c *Constraint) clone() *Constraint {
	cc := *c
	return &cc
}

func (*Constraint) relation() {}

// Instance is one emitted constraint at a concrete index.
type Instance struct {
	Constraint string
	Index      Index
	Rel        Rel
}

// Instantiate expands c over every index of its shape in dims and keeps the
// emitted outcomes.
func (c *Constraint) Instantiate(p ParamScope, dims Dimensions) []Instance {
	var out []Instance
	for _, ix := range dims.Indices(c.Shape) {
		if rel, ok := c.Rule(p, ix).Relation(); ok {
			out = append(out, Instance{Constraint: c.Name, Index: ix, Rel: rel})
		}
	}
	return out
}

// Direction of optimisation.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// Objective names the variable whose value at the final time step the
// external solver optimises.
type Objective struct {
	Variable  string
	Direction Direction
}

func (o *Objective) Label() string { return "objective:" + o.Variable }

func (o *Objective) clone() *Objective {
	c := *o
	return &c
}

func (*Objective) relation() {}
