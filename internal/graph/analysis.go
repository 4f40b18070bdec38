package graph

// BackEdge is a link that closes a cycle during depth-first traversal.
// Cycle lists node positions from the link's target around to its source.
type BackEdge struct {
	Link  int
	Cycle []int
}

// Analysis holds the cycle structure of an Index.
type Analysis struct {
	// Component is the strongly connected component of each node.
	Component []int
	// Cyclic reports per component whether it contains a cycle.
	Cyclic []bool
	// InLoop is true for nodes in a cyclic component that contains a loop node.
	InLoop    []bool
	BackEdges []BackEdge
}

// Sanctioned reports whether a back edge stays inside a loop structure. Any
// cycle sharing a component with a loop node qualifies, not only cycles
// through that node.
func (a *Analysis) Sanctioned(x *Index, b BackEdge) bool {
	l := x.Link(b.Link)
	return a.InLoop[l.From] && a.InLoop[l.To] && a.Component[l.From] == a.Component[l.To]
}

// IsBackEdge reports whether link li was classified as a back edge.
func (a *Analysis) IsBackEdge(li int) bool {
	for _, b := range a.BackEdges {
		if b.Link == li {
			return true
		}
	}
	return false
}

// Analyze computes strongly connected components and classifies back edges.
// Traversal follows arena order and edge order, so results are deterministic.
func (x *Index) Analyze() *Analysis {
	a := &Analysis{
		Component: x.components(),
		InLoop:    make([]bool, len(x.nodes)),
	}

	count := 0
	for _, c := range a.Component {
		if c+1 > count {
			count = c + 1
		}
	}
	size := make([]int, count)
	hasLoop := make([]bool, count)
	a.Cyclic = make([]bool, count)
	for i, c := range a.Component {
		size[c]++
		if x.nodes[i].Kind == KindLoop {
			hasLoop[c] = true
		}
	}
	for c := range size {
		if size[c] > 1 {
			a.Cyclic[c] = true
		}
	}
	for _, l := range x.links {
		if l.From == l.To {
			a.Cyclic[a.Component[l.From]] = true
		}
	}
	for i, c := range a.Component {
		a.InLoop[i] = a.Cyclic[c] && hasLoop[c]
	}

	a.BackEdges = x.backEdges()
	return a
}

// backEdges runs a DFS with a recursion stack and reconstructs the cycle
// closed by each back edge from the parent chain.
func (x *Index) backEdges() []BackEdge {
	visited := make([]bool, len(x.nodes))
	onStack := make([]bool, len(x.nodes))
	parent := make([]int, len(x.nodes))
	var found []BackEdge

	var dfs func(node int)
	dfs = func(node int) {
		visited[node] = true
		onStack[node] = true

		for _, li := range x.out[node] {
			next := x.links[li].To
			if !visited[next] {
				parent[next] = node
				dfs(next)
			} else if onStack[next] {
				cycle := []int{node}
				for current := node; current != next; {
					current = parent[current]
					cycle = append(cycle, current)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				found = append(found, BackEdge{Link: li, Cycle: cycle})
			}
		}

		onStack[node] = false
	}

	// Triggers first so that edges leaving the entry points are tree edges.
	roots := append(x.Triggers(), seq(len(x.nodes))...)
	for _, r := range roots {
		if !visited[r] {
			parent[r] = r
			dfs(r)
		}
	}
	return found
}

// components labels strongly connected components with Tarjan's algorithm.
func (x *Index) components() []int {
	n := len(x.nodes)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next, label := 0, 0

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, li := range x.out[v] {
			w := x.links[li].To
			if index[w] < 0 {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] == index[v] {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = label
				if w == v {
					break
				}
			}
			label++
		}
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongConnect(v)
		}
	}
	return comp
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
