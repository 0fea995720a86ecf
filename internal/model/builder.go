package model

import "fmt"

// Component contributes declarations and relations to a composition.
type Component interface {
	Name() string
	Build(b *Builder) ([]Relation, error)
}

// Span records what one included component contributed.
type Span struct {
	Component  string
	Variables  []string
	Parameters []string
	First      int // index of the first relation in Structure.Relations
	Count      int
}

type entryKind int

const (
	kindVariable entryKind = iota
	kindParameter
)

type entry struct {
	kind  entryKind
	index int
	owner string
}

// Builder collects declarations and relations during composition. The first
// declaration error is kept and reported by Err, Include and Freeze.
type Builder struct {
	vars      []*Variable
	params    []*Parameter
	names     map[string]entry
	relations []Relation
	spans     []Span
	current   int // index into spans, -1 outside Include
	seq       int
	err       error
	frozen    bool
}

func NewBuilder() *Builder {
	return &Builder{names: make(map[string]entry), current: -1}
}

// span is the span of the component being included, or nil.
func (b *Builder) span() *Span {
	if b.current < 0 {
		return nil
	}
	return &b.spans[b.current]
}

// Variable declares a computed variable and returns its name.
func (b *Builder) Variable(name string, shape Shape, opts ...Option) string {
	b.declareVariable(name, shape, false, opts)
	return name
}

// Control declares a variable whose values are supplied per run.
func (b *Builder) Control(name string, shape Shape, opts ...Option) string {
	b.declareVariable(name, shape, true, opts)
	return name
}

// Param declares a parameter and returns its name.
func (b *Builder) Param(name string, shape Shape, opts ...Option) string {
	o := newDecl(name, shape, opts)
	if !b.claim(name, kindParameter, len(b.params)) {
		return name
	}
	p := &Parameter{Decl: o.decl, Default: o.def, HasDefault: o.hasDefault}
	b.stamp(&p.Decl)
	b.params = append(b.params, p)
	if sp := b.span(); sp != nil {
		sp.Parameters = append(sp.Parameters, name)
	}
	return name
}

func (b *Builder) declareVariable(name string, shape Shape, control bool, opts []Option) {
	o := newDecl(name, shape, opts)
	if !b.claim(name, kindVariable, len(b.vars)) {
		return
	}
	v := &Variable{Decl: o.decl, Control: control}
	b.stamp(&v.Decl)
	b.vars = append(b.vars, v)
	if sp := b.span(); sp != nil {
		sp.Variables = append(sp.Variables, name)
	}
}

func (b *Builder) stamp(d *Decl) {
	d.Seq = b.seq
	d.Position = len(b.relations)
	if sp := b.span(); sp != nil {
		d.Owner = sp.Component
	}
	b.seq++
}

func (b *Builder) claim(name string, kind entryKind, index int) bool {
	if b.err != nil {
		return false
	}
	if b.frozen {
		b.err = ErrFrozen
		return false
	}
	if name == "" {
		b.err = structural(InvalidComponent, "empty name", b.owner())
		return false
	}
	if prev, ok := b.names[name]; ok {
		b.err = structural(DuplicateName,
			fmt.Sprintf("declared by %s and %s", prev.owner, b.owner()), name)
		return false
	}
	b.names[name] = entry{kind: kind, index: index, owner: b.owner()}
	return true
}

func (b *Builder) owner() string {
	if sp := b.span(); sp != nil {
		return sp.Component
	}
	return "<builder>"
}

// Has reports whether name is declared.
func (b *Builder) Has(name string) bool {
	_, ok := b.names[name]
	return ok
}

// Len is the number of declared variables and parameters.
func (b *Builder) Len() int { return len(b.vars) + len(b.params) }

// Err returns the first declaration error.
func (b *Builder) Err() error { return b.err }

// Include runs c.Build against the builder and appends the returned
// relations in order. Components cannot include other components from
// their Build.
func (b *Builder) Include(c Component) error {
	if b.frozen {
		return ErrFrozen
	}
	if b.err != nil {
		return b.err
	}
	if sp := b.span(); sp != nil {
		b.err = structural(InvalidComponent, "nested include from "+sp.Component, c.Name())
		return b.err
	}
	b.spans = append(b.spans, Span{Component: c.Name(), First: len(b.relations)})
	b.current = len(b.spans) - 1
	defer func() { b.current = -1 }()

	rels, err := c.Build(b)
	if b.err != nil {
		return fmt.Errorf("component %s: %w", c.Name(), b.err)
	}
	if err != nil {
		b.err = err
		return fmt.Errorf("component %s: %w", c.Name(), err)
	}
	for _, r := range rels {
		if r == nil {
			b.err = structural(InvalidComponent, "nil relation", c.Name())
			return b.err
		}
	}
	b.relations = append(b.relations, rels...)
	b.span().Count = len(rels)
	return nil
}

// Freeze validates the collected relations and returns the immutable
// structure. The builder rejects every later mutation with ErrFrozen.
func (b *Builder) Freeze() (*Structure, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	if b.err != nil {
		return nil, b.err
	}
	st, err := newStructure(b)
	if err != nil {
		b.err = err
		return nil, err
	}
	b.frozen = true
	return st, nil
}

// Structure is a frozen composition: declarations, relations in registration
// order and the component spans that produced them. It holds its own copies
// and hands out copies, so it is read-only and safe for concurrent use.
type Structure struct {
	vars        []*Variable
	params      []*Parameter
	names       map[string]entry
	relations   []Relation
	equations   map[string]*Equation
	positions   map[string]int
	constraints []*Constraint
	objective   *Objective
	spans       []Span
}

func newStructure(b *Builder) (*Structure, error) {
	st := &Structure{
		vars:      make([]*Variable, len(b.vars)),
		params:    make([]*Parameter, len(b.params)),
		names:     make(map[string]entry, len(b.names)),
		relations: make([]Relation, len(b.relations)),
		equations: make(map[string]*Equation),
		positions: make(map[string]int),
		spans:     make([]Span, len(b.spans)),
	}
	for i, v := range b.vars {
		c := *v
		st.vars[i] = &c
	}
	for i, p := range b.params {
		c := *p
		st.params[i] = &c
	}
	for i, r := range b.relations {
		st.relations[i] = cloneRelation(r)
	}
	for i, sp := range b.spans {
		st.spans[i] = cloneSpan(sp)
	}
	for k, v := range b.names {
		st.names[k] = v
	}

	labels := make(map[string]bool)
	for pos, r := range st.relations {
		switch rel := r.(type) {
		case *Equation:
			if err := st.addEquation(rel, pos); err != nil {
				return nil, err
			}
		case *Constraint:
			if rel.Name == "" || rel.Rule == nil {
				return nil, structural(InvalidComponent, "constraint needs a name and a rule", rel.Name)
			}
			if labels[rel.Name] {
				return nil, structural(DuplicateName, "constraint declared twice", rel.Name)
			}
			labels[rel.Name] = true
			st.constraints = append(st.constraints, rel)
		case *Objective:
			if st.objective != nil {
				return nil, structural(InvalidComponent, "more than one objective",
					st.objective.Variable, rel.Variable)
			}
			if _, ok := st.Variable(rel.Variable); !ok {
				return nil, structural(UndeclaredTarget, "objective", rel.Variable)
			}
			st.objective = rel
		default:
			return nil, structural(InvalidComponent, fmt.Sprintf("unknown relation %T", r), r.Label())
		}
	}
	return st, nil
}

func (st *Structure) addEquation(eq *Equation, pos int) error {
	if eq.Rule == nil {
		return structural(InvalidComponent, "equation without rule", eq.Label())
	}
	target, ok := st.Variable(eq.Target)
	if !ok {
		if _, isParam := st.Parameter(eq.Target); isParam {
			return structural(UndeclaredTarget, "target is a parameter", eq.Target)
		}
		return structural(UndeclaredTarget, "", eq.Target)
	}
	if target.Control {
		return structural(ControlTargeted, "", eq.Target)
	}
	if _, dup := st.equations[eq.Target]; dup {
		return structural(DuplicateEquation, "", eq.Target)
	}
	if !eq.hasShape {
		eq.shape, eq.hasShape = target.Shape, true
	} else if eq.shape != target.Shape {
		return structural(ShapeMismatch,
			fmt.Sprintf("equation is %s, variable is %s", eq.shape, target.Shape), eq.Target)
	}
	for _, d := range eq.Deps {
		if d.Lag < 0 {
			return structural(InvalidComponent, "negative lag", eq.Target, d.Name)
		}
		if _, ok := st.names[d.Name]; !ok {
			return structural(UndeclaredReference, "read by "+eq.Label(), d.Name)
		}
	}
	st.equations[eq.Target] = eq
	st.positions[eq.Target] = pos
	return nil
}

func cloneRelation(r Relation) Relation {
	switch rel := r.(type) {
	case *Equation:
		return rel.clone()
	case *Constraint:
		return rel.clone()
	case *Objective:
		return rel.clone()
	default:
		return r
	}
}

func cloneSpan(sp Span) Span {
	sp.Variables = append([]string(nil), sp.Variables...)
	sp.Parameters = append([]string(nil), sp.Parameters...)
	return sp
}

// Variables returns copies of the declared variables in declaration order.
func (st *Structure) Variables() []*Variable {
	out := make([]*Variable, len(st.vars))
	for i, v := range st.vars {
		c := *v
		out[i] = &c
	}
	return out
}

// Parameters returns copies of the declared parameters in declaration order.
func (st *Structure) Parameters() []*Parameter {
	out := make([]*Parameter, len(st.params))
	for i, p := range st.params {
		c := *p
		out[i] = &c
	}
	return out
}

// Relations returns copies of every relation in registration order.
func (st *Structure) Relations() []Relation {
	out := make([]Relation, len(st.relations))
	for i, r := range st.relations {
		out[i] = cloneRelation(r)
	}
	return out
}

func (st *Structure) Constraints() []*Constraint {
	out := make([]*Constraint, len(st.constraints))
	for i, c := range st.constraints {
		out[i] = c.clone()
	}
	return out
}

func (st *Structure) Objective() (*Objective, bool) {
	if st.objective == nil {
		return nil, false
	}
	return st.objective.clone(), true
}

func (st *Structure) Spans() []Span {
	out := make([]Span, len(st.spans))
	for i, sp := range st.spans {
		out[i] = cloneSpan(sp)
	}
	return out
}

func (st *Structure) variable(name string) (*Variable, bool) {
	e, ok := st.names[name]
	if !ok || e.kind != kindVariable {
		return nil, false
	}
	return st.vars[e.index], true
}

// Variable returns a copy of the declaration of name.
func (st *Structure) Variable(name string) (*Variable, bool) {
	v, ok := st.variable(name)
	if !ok {
		return nil, false
	}
	c := *v
	return &c, true
}

func (st *Structure) Parameter(name string) (*Parameter, bool) {
	e, ok := st.names[name]
	if !ok || e.kind != kindParameter {
		return nil, false
	}
	c := *st.params[e.index]
	return &c, true
}

// Decl returns the declaration of a variable or parameter.
func (st *Structure) Decl(name string) (Decl, bool) {
	if v, ok := st.variable(name); ok {
		return v.Decl, true
	}
	if p, ok := st.Parameter(name); ok {
		return p.Decl, true
	}
	return Decl{}, false
}

// EquationFor returns a copy of the equation targeting name and its
// registration position in Relations.
func (st *Structure) EquationFor(name string) (*Equation, int, bool) {
	eq, ok := st.equations[name]
	if !ok {
		return nil, 0, false
	}
	return eq.clone(), st.positions[name], true
}

// Len is the number of declared variables and parameters.
func (st *Structure) Len() int { return len(st.vars) + len(st.params) }

// Controls returns the names of control variables in declaration order.
func (st *Structure) Controls() []string {
	var out []string
	for _, v := range st.vars {
		if v.Control {
			out = append(out, v.Name)
		}
	}
	return out
}

// IsControl reports whether name is a declared control variable.
func (st *Structure) IsControl(name string) bool {
	v, ok := st.variable(name)
	return ok && v.Control
}

// Unresolved lists non-control variables without an equation.
func (st *Structure) Unresolved() []string {
	var out []string
	for _, v := range st.vars {
		if v.Control {
			continue
		}
		if _, ok := st.equations[v.Name]; !ok {
			out = append(out, v.Name)
		}
	}
	return out
}

