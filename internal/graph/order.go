package graph

import "container/heap"

// priority orders ready nodes. Equations rank by their registration
// position; controls rank by the number of relations registered before
// their declaration and go first on ties. Seq breaks the remaining ties.
type priority struct {
	position int
	control  bool
	seq      int
}

func (p priority) less(o priority) bool {
	if p.position != o.position {
		return p.position < o.position
	}
	if p.control != o.control {
		return p.control
	}
	return p.seq < o.seq
}

type readyItem struct {
	name string
	prio priority
}

type readyQueue []readyItem

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].prio.less(q[j].prio) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(readyItem)) }
func (q *readyQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

func (g *Graph) priorityOf(name string) priority {
	v, _ := g.st.Variable(name)
	if v.Control {
		return priority{position: v.Position, control: true, seq: v.Seq}
	}
	_, pos, _ := g.st.EquationFor(name)
	return priority{position: pos, seq: v.Seq}
}

// topoSort is Kahn's algorithm with registration order as tie-break. It
// assumes detectCycles has passed. Variables without equation that are not
// controls rank after everything else; the simulator rejects them.
func (g *Graph) topoSort() []string {
	indeg := make(map[string]int)
	q := &readyQueue{}
	for _, n := range g.nodes {
		if n.Kind == Input {
			continue
		}
		indeg[n.Name] = len(g.deps[n.Name])
		if indeg[n.Name] == 0 {
			heap.Push(q, readyItem{name: n.Name, prio: g.unresolvedLast(n.Name)})
		}
	}

	order := make([]string, 0, len(indeg))
	for q.Len() > 0 {
		it := heap.Pop(q).(readyItem)
		order = append(order, it.name)
		for _, next := range g.outs[it.name] {
			indeg[next]--
			if indeg[next] == 0 {
				heap.Push(q, readyItem{name: next, prio: g.unresolvedLast(next)})
			}
		}
	}
	return order
}

func (g *Graph) unresolvedLast(name string) priority {
	v, _ := g.st.Variable(name)
	if _, _, ok := g.st.EquationFor(name); !ok && !v.Control {
		return priority{position: int(^uint(0) >> 1), seq: v.Seq}
	}
	return g.priorityOf(name)
}
