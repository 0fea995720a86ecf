package model

import (
	"errors"
	"testing"
)

type funcComponent struct {
	name  string
	build func(b *Builder) ([]Relation, error)
}

func (c funcComponent) Name() string                         { return c.name }
func (c funcComponent) Build(b *Builder) ([]Relation, error) { return c.build(b) }

func constant(v float64) Rule { return func(Scope) float64 { return v } }

func TestBuilderDeclareAndFreeze(t *testing.T) {
	b := NewBuilder()
	err := b.Include(funcComponent{name: "core", build: func(b *Builder) ([]Relation, error) {
		b.Param("gamma", Scalar, Default(2442))
		b.Control("abatement", Time, Bounds(0, 1))
		cost := b.Variable("cost", Time, Unit("USD"))
		return []Relation{
			Define(cost, Deps(Now("gamma"), Now("abatement")), constant(0)),
		}, nil
	}})
	if err != nil {
		t.Fatalf("include failed: %v", err)
	}
	if b.Len() != 3 {
		t.Errorf("expected 3 declarations, got %d", b.Len())
	}

	st, err := b.Freeze()
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	eq, pos, ok := st.EquationFor("cost")
	if !ok || pos != 0 {
		t.Fatalf("expected equation for cost at 0, got ok=%v pos=%d", ok, pos)
	}
	if eq.Shape() != Time {
		t.Errorf("expected equation shape inherited from target, got %s", eq.Shape())
	}
	if got := st.Controls(); len(got) != 1 || got[0] != "abatement" {
		t.Errorf("unexpected controls %v", got)
	}
	v, _ := st.Variable("cost")
	if v.Owner != "core" || v.Unit != "USD" {
		t.Errorf("unexpected decl %+v", v.Decl)
	}
	spans := st.Spans()
	if len(spans) != 1 || spans[0].Count != 1 || len(spans[0].Variables) != 2 {
		t.Errorf("unexpected spans %+v", spans)
	}
}

func TestFreezeKeepsUnresolvedVariables(t *testing.T) {
	b := NewBuilder()
	b.Variable("x", Scalar)
	st, err := b.Freeze()
	if err != nil {
		t.Fatalf("freeze failed: %v", err)
	}
	if got := st.Unresolved(); len(got) != 1 || got[0] != "x" {
		t.Errorf("expected [x] unresolved, got %v", got)
	}
}

func TestBuilderFrozen(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Freeze(); err != nil {
		t.Fatalf("empty freeze failed: %v", err)
	}
	b.Variable("late", Scalar)
	if !errors.Is(b.Err(), ErrFrozen) {
		t.Errorf("expected ErrFrozen, got %v", b.Err())
	}
	if err := b.Include(funcComponent{name: "late", build: func(*Builder) ([]Relation, error) { return nil, nil }}); !errors.Is(err, ErrFrozen) {
		t.Errorf("expected ErrFrozen from Include, got %v", err)
	}
	if _, err := b.Freeze(); !errors.Is(err, ErrFrozen) {
		t.Errorf("expected ErrFrozen from second Freeze, got %v", err)
	}
}

func TestBuilderStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) []Relation
		kind  StructuralKind
	}{
		{
			name: "duplicate name",
			build: func(b *Builder) []Relation {
				b.Variable("x", Time)
				b.Param("x", Scalar)
				return nil
			},
			kind: DuplicateName,
		},
		{
			name: "undeclared target",
			build: func(b *Builder) []Relation {
				return []Relation{Define("ghost", nil, constant(1))}
			},
			kind: UndeclaredTarget,
		},
		{
			name: "parameter target",
			build: func(b *Builder) []Relation {
				p := b.Param("p", Scalar)
				return []Relation{Define(p, nil, constant(1))}
			},
			kind: UndeclaredTarget,
		},
		{
			name: "control targeted",
			build: func(b *Builder) []Relation {
				c := b.Control("c", Time)
				return []Relation{Define(c, nil, constant(1))}
			},
			kind: ControlTargeted,
		},
		{
			name: "second equation",
			build: func(b *Builder) []Relation {
				x := b.Variable("x", Time)
				return []Relation{Define(x, nil, constant(1)), Define(x, nil, constant(2))}
			},
			kind: DuplicateEquation,
		},
		{
			name: "shape mismatch",
			build: func(b *Builder) []Relation {
				x := b.Variable("x", TimeRegion)
				return []Relation{Define(x, nil, constant(1)).In(Time)}
			},
			kind: ShapeMismatch,
		},
		{
			name: "scalar equation on a series",
			build: func(b *Builder) []Relation {
				x := b.Variable("x", TimeRegion)
				return []Relation{Define(x, nil, constant(1)).In(Scalar)}
			},
			kind: ShapeMismatch,
		},
		{
			name: "nested include",
			build: func(b *Builder) []Relation {
				_ = b.Include(funcComponent{name: "inner", build: func(b *Builder) ([]Relation, error) {
					b.Variable("y", Time)
					return nil, nil
				}})
				return nil
			},
			kind: InvalidComponent,
		},
		{
			name: "undeclared reference",
			build: func(b *Builder) []Relation {
				x := b.Variable("x", Time)
				return []Relation{Define(x, Deps(Now("nowhere")), constant(1))}
			},
			kind: UndeclaredReference,
		},
		{
			name: "two objectives",
			build: func(b *Builder) []Relation {
				x := b.Variable("x", Time)
				return []Relation{
					Define(x, nil, constant(1)),
					&Objective{Variable: x},
					&Objective{Variable: x, Direction: Minimize},
				}
			},
			kind: InvalidComponent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			err := b.Include(funcComponent{name: "c", build: func(b *Builder) ([]Relation, error) {
				return tt.build(b), nil
			}})
			if err == nil {
				_, err = b.Freeze()
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected StructuralError, got %v", err)
			}
			if se.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, se.Kind)
			}
			if !errors.Is(err, ErrStructural) {
				t.Error("expected errors.Is ErrStructural")
			}
		})
	}
}

func TestBuilderDuplicateAcrossComponents(t *testing.T) {
	b := NewBuilder()
	mk := func(name string) Component {
		return funcComponent{name: name, build: func(b *Builder) ([]Relation, error) {
			b.Variable("shared", Time)
			return nil, nil
		}}
	}
	if err := b.Include(mk("first")); err != nil {
		t.Fatal(err)
	}
	err := b.Include(mk("second"))
	var se *StructuralError
	if !errors.As(err, &se) || se.Kind != DuplicateName {
		t.Fatalf("expected duplicate name, got %v", err)
	}
	if se.Names[0] != "shared" {
		t.Errorf("expected offending name shared, got %v", se.Names)
	}
}

func TestBuilderPositions(t *testing.T) {
	b := NewBuilder()
	_ = b.Include(funcComponent{name: "a", build: func(b *Builder) ([]Relation, error) {
		x := b.Variable("x", Time)
		return []Relation{Define(x, nil, constant(1))}, nil
	}})
	_ = b.Include(funcComponent{name: "b", build: func(b *Builder) ([]Relation, error) {
		b.Control("u", Time)
		return nil, nil
	}})
	st, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	u, _ := st.Variable("u")
	if u.Position != 1 || u.Seq != 1 {
		t.Errorf("expected control at position 1 seq 1, got %d %d", u.Position, u.Seq)
	}
}

func TestFrozenStructureIsolation(t *testing.T) {
	b := NewBuilder()
	eq := Define("x", Deps(Prev("x")), constant(1))
	err := b.Include(funcComponent{name: "core", build: func(b *Builder) ([]Relation, error) {
		b.Variable("x", TimeRegion, Bounds(0, 1))
		b.Param("p", Scalar, Default(1))
		return []Relation{eq}, nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	st, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	if eq.Shape() != Scalar {
		t.Errorf("freeze changed the component's equation shape to %s", eq.Shape())
	}
	eq.Deps = append(eq.Deps, Now("p"))

	st.Variables()[0].Control = true
	v, _ := st.Variable("x")
	v.Upper = 10
	p, _ := st.Parameter("p")
	p.Default = 5
	got, _, _ := st.EquationFor("x")
	got.Deps[0] = Now("x")
	_ = append(got.Deps, Now("p"))
	st.Relations()[0].(*Equation).Deps = nil
	st.Spans()[0].Variables[0] = "renamed"

	if st.IsControl("x") {
		t.Error("IsControl changed through a returned variable")
	}
	if v, _ := st.Variable("x"); v.Upper != 1 {
		t.Errorf("upper bound changed to %g", v.Upper)
	}
	if p, _ := st.Parameter("p"); p.Default != 1 {
		t.Errorf("default changed to %g", p.Default)
	}
	frozen, _, _ := st.EquationFor("x")
	if len(frozen.Deps) != 1 || frozen.Deps[0] != Prev("x") {
		t.Errorf("frozen deps changed to %v", frozen.Deps)
	}
	if frozen.Shape() != TimeRegion {
		t.Errorf("frozen equation shape %s, want %s", frozen.Shape(), TimeRegion)
	}
	if sp := st.Spans()[0]; sp.Variables[0] != "x" {
		t.Errorf("span variables changed to %v", sp.Variables)
	}
}
