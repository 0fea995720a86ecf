// Package graph derives the per-step dependency graph of a frozen structure
// and the deterministic order in which the simulator evaluates it.
//
// Nodes are the declared variables and parameters. Same-time references
// (Lag 0) between variables form edges that must be acyclic; lagged
// references are recorded but only require the previous step to be complete.
package graph

import (
	"fmt"
	"sort"

	"github.com/san-kum/ecosim/internal/model"
)

// Kind of a node.
type Kind int

const (
	Computed Kind = iota
	Control
	Input
)

func (k Kind) String() string {
	switch k {
	case Control:
		return "control"
	case Input:
		return "input"
	default:
		return "computed"
	}
}

type Node struct {
	Name  string
	Kind  Kind
	Shape model.Shape
	Owner string
	Unit  string
}

// Static reports whether the node is evaluated once, at the first step.
func (n Node) Static() bool { return n.Shape.Static() }

// Edge points from a dependency to the variable whose equation reads it.
type Edge struct {
	From string
	To   string
	Lag  int
}

// SameTime reports whether the edge constrains the evaluation order.
func (e Edge) SameTime() bool { return e.Lag == 0 }

// Graph is read-only after Build.
type Graph struct {
	st      *model.Structure
	nodes   []Node
	index   map[string]int
	edges   []Edge
	deps    map[string][]string // same-time variable dependencies
	outs    map[string][]string // same-time dependents
	order   []string
	rank    map[string]int
	nLagged int
}

// Build links every equation to its declared references, rejects same-time
// cycles and invalid static dependencies, and computes the evaluation order.
func Build(st *model.Structure) (*Graph, error) {
	g := &Graph{
		st:    st,
		index: make(map[string]int),
		deps:  make(map[string][]string),
		outs:  make(map[string][]string),
		rank:  make(map[string]int),
	}
	g.createNodes()
	if err := g.link(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	g.order = g.topoSort()
	for i, name := range g.order {
		g.rank[name] = i
	}
	return g, nil
}

func (g *Graph) createNodes() {
	for _, v := range g.st.Variables() {
		kind := Computed
		if v.Control {
			kind = Control
		}
		g.addNode(Node{Name: v.Name, Kind: kind, Shape: v.Shape, Owner: v.Owner, Unit: v.Unit})
	}
	for _, p := range g.st.Parameters() {
		g.addNode(Node{Name: p.Name, Kind: Input, Shape: p.Shape, Owner: p.Owner, Unit: p.Unit})
	}
}

func (g *Graph) addNode(n Node) {
	g.index[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

func (g *Graph) link() error {
	for _, r := range g.st.Relations() {
		eq, ok := r.(*model.Equation)
		if !ok {
			continue
		}
		target := g.nodes[g.index[eq.Target]]
		seen := make(map[model.Ref]bool, len(eq.Deps))
		for _, ref := range eq.Deps {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			if ref.Name == eq.Target && ref.Lag == 0 {
				return model.NewStructuralError(model.Cycle, "same-time self reference", eq.Target, eq.Target)
			}
			dep := g.nodes[g.index[ref.Name]]
			if target.Static() {
				if ref.Lag > 0 {
					return model.NewStructuralError(model.StaticDependency,
						fmt.Sprintf("static %s cannot read %s", eq.Target, ref), eq.Target, ref.Name)
				}
				if dep.Kind != Input && !dep.Static() {
					return model.NewStructuralError(model.StaticDependency,
						fmt.Sprintf("static %s reads time-varying %s", eq.Target, ref.Name), eq.Target, ref.Name)
				}
			}
			g.edges = append(g.edges, Edge{From: ref.Name, To: eq.Target, Lag: ref.Lag})
			if ref.Lag > 0 {
				g.nLagged++
				continue
			}
			if dep.Kind != Input {
				g.deps[eq.Target] = append(g.deps[eq.Target], ref.Name)
				g.outs[ref.Name] = append(g.outs[ref.Name], eq.Target)
			}
		}
	}
	return nil
}

// detectCycles runs a depth-first search over same-time edges and reports
// the first cycle found with its full path.
func (g *Graph) detectCycles() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = active
		stack = append(stack, name)
		for _, next := range g.outs[name] {
			switch state[next] {
			case active:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				path := append([]string(nil), stack[start:]...)
				return append(path, next)
			case unvisited:
				if cyc := visit(next); cyc != nil {
					return cyc
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, n := range g.nodes {
		if n.Kind == Input || state[n.Name] != unvisited {
			continue
		}
		if cyc := visit(n.Name); cyc != nil {
			return model.NewStructuralError(model.Cycle, "", cyc...)
		}
	}
	return nil
}

// Nodes returns variables then parameters, each in declaration order.
func (g *Graph) Nodes() []Node { return append([]Node(nil), g.nodes...) }

// Node looks up a node by name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Edges returns every declared reference, same-time and lagged, in
// registration order.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Order is the evaluation order of all variables.
func (g *Graph) Order() []string { return append([]string(nil), g.order...) }

// Rank is the position of a variable in Order.
func (g *Graph) Rank(name string) (int, bool) {
	r, ok := g.rank[name]
	return r, ok
}

// DependenciesOf returns the declared references of the equation for name,
// or nil for controls and parameters.
func (g *Graph) DependenciesOf(name string) []model.Ref {
	eq, _, ok := g.st.EquationFor(name)
	if !ok {
		return nil
	}
	return append([]model.Ref(nil), eq.Deps...)
}

// Dependents returns the variables reading name at the same time step, sorted.
func (g *Graph) Dependents(name string) []string {
	out := append([]string(nil), g.outs[name]...)
	sort.Strings(out)
	return out
}

func (g *Graph) Structure() *model.Structure { return g.st }

// Stats summarises the graph size.
type Stats struct {
	Variables int
	Controls  int
	Inputs    int
	SameTime  int
	Lagged    int
}

func (g *Graph) Stats() Stats {
	s := Stats{Lagged: g.nLagged, SameTime: len(g.edges) - g.nLagged}
	for _, n := range g.nodes {
		switch n.Kind {
		case Input:
			s.Inputs++
		case Control:
			s.Controls++
			s.Variables++
		default:
			s.Variables++
		}
	}
	return s
}
