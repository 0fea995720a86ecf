package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/ecosim/internal/graph"
)

type GraphNode struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Shape string `json:"shape"`
	Owner string `json:"owner,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Rank  *int   `json:"rank,omitempty"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Lag  int    `json:"lag,omitempty"`
}

type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Order []string    `json:"order"`
}

func NewGraphData(g *graph.Graph) GraphData {
	data := GraphData{Order: g.Order()}
	for _, n := range g.Nodes() {
		gn := GraphNode{Name: n.Name, Kind: n.Kind.String(), Shape: n.Shape.String(), Owner: n.Owner, Unit: n.Unit}
		if r, ok := g.Rank(n.Name); ok {
			gn.Rank = &r
		}
		data.Nodes = append(data.Nodes, gn)
	}
	for _, e := range g.Edges() {
		data.Edges = append(data.Edges, GraphEdge{From: e.From, To: e.To, Lag: e.Lag})
	}
	return data
}

// WriteDOT renders the graph for Graphviz. Nodes are clustered by the
// component that declared them; lagged edges are dashed and parameters
// are drawn only when withInputs is set.
func WriteDOT(w io.Writer, g *graph.Graph, withInputs bool) error {
	var sb strings.Builder
	sb.WriteString("digraph ecosim {\n  rankdir=LR;\n  node [fontname=\"monospace\" fontsize=10];\n")

	owners := make(map[string][]graph.Node)
	var order []string
	for _, n := range g.Nodes() {
		if n.Kind == graph.Input && !withInputs {
			continue
		}
		if _, ok := owners[n.Owner]; !ok {
			order = append(order, n.Owner)
		}
		owners[n.Owner] = append(owners[n.Owner], n)
	}
	for i, owner := range order {
		fmt.Fprintf(&sb, "  subgraph cluster_%d {\n    label=%q;\n", i, owner)
		for _, n := range owners[owner] {
			fmt.Fprintf(&sb, "    %q [shape=%s];\n", n.Name, nodeShape(n.Kind))
		}
		sb.WriteString("  }\n")
	}

	for _, e := range g.Edges() {
		if from, ok := g.Node(e.From); ok && from.Kind == graph.Input && !withInputs {
			continue
		}
		if e.SameTime() {
			fmt.Fprintf(&sb, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&sb, "  %q -> %q [style=dashed label=\"t-%d\"];\n", e.From, e.To, e.Lag)
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func nodeShape(k graph.Kind) string {
	switch k {
	case graph.Control:
		return "diamond"
	case graph.Input:
		return "note"
	default:
		return "box"
	}
}
