package graph

// Link is an edge whose endpoints both resolve to indexed nodes.
type Link struct {
	From int
	To   int
	Edge *Edge
}

// Index is an arena view of a workflow: nodes addressed by position with
// forward and reverse adjacency precomputed once. Duplicate node ids keep
// their first occurrence; edges with unknown endpoints are set aside.
type Index struct {
	nodes      []*Node
	ids        map[string]int
	links      []Link
	out        [][]int
	in         [][]int
	dangling   []*Edge
	duplicates []*Node
}

// NewIndex builds the arena for w.
func NewIndex(w *Workflow) *Index {
	x := &Index{ids: make(map[string]int, len(w.Nodes))}

	for i := range w.Nodes {
		n := &w.Nodes[i]
		if _, seen := x.ids[n.ID]; seen {
			x.duplicates = append(x.duplicates, n)
			continue
		}
		x.ids[n.ID] = len(x.nodes)
		x.nodes = append(x.nodes, n)
	}

	x.out = make([][]int, len(x.nodes))
	x.in = make([][]int, len(x.nodes))

	for i := range w.Edges {
		e := &w.Edges[i]
		from, okFrom := x.ids[e.Source]
		to, okTo := x.ids[e.Target]
		if !okFrom || !okTo {
			x.dangling = append(x.dangling, e)
			continue
		}
		li := len(x.links)
		x.links = append(x.links, Link{From: from, To: to, Edge: e})
		x.out[from] = append(x.out[from], li)
		x.in[to] = append(x.in[to], li)
	}

	return x
}

func (x *Index) Len() int { return len(x.nodes) }

func (x *Index) Node(i int) *Node { return x.nodes[i] }

// Lookup returns the arena position of the node with the given id.
func (x *Index) Lookup(id string) (int, bool) {
	i, ok := x.ids[id]
	return i, ok
}

func (x *Index) Link(li int) Link { return x.links[li] }

func (x *Index) LinkCount() int { return len(x.links) }

// OutLinks returns the link indices leaving node i in input edge order.
func (x *Index) OutLinks(i int) []int { return x.out[i] }

// InLinks returns the link indices entering node i in input edge order.
func (x *Index) InLinks(i int) []int { return x.in[i] }

// Successors returns the distinct targets of node i in edge order.
func (x *Index) Successors(i int) []int {
	return x.distinct(x.out[i], func(l Link) int { return l.To })
}

// Predecessors returns the distinct sources of node i in edge order.
func (x *Index) Predecessors(i int) []int {
	return x.distinct(x.in[i], func(l Link) int { return l.From })
}

func (x *Index) distinct(links []int, end func(Link) int) []int {
	out := make([]int, 0, len(links))
	seen := make(map[int]bool, len(links))
	for _, li := range links {
		n := end(x.links[li])
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Dangling returns edges whose source or target is not a known node.
func (x *Index) Dangling() []*Edge { return x.dangling }

// Duplicates returns nodes shadowed by an earlier node with the same id.
func (x *Index) Duplicates() []*Node { return x.duplicates }

// Triggers returns the positions of all trigger nodes.
func (x *Index) Triggers() []int {
	var out []int
	for i, n := range x.nodes {
		if n.Kind == KindTrigger {
			out = append(out, i)
		}
	}
	return out
}

// Reachable marks every node reachable from roots by breadth-first search.
// Links for which skip returns true are not followed.
func (x *Index) Reachable(roots []int, skip func(li int) bool) []bool {
	seen := make([]bool, len(x.nodes))
	queue := make([]int, 0, len(x.nodes))
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, li := range x.out[current] {
			if skip != nil && skip(li) {
				continue
			}
			next := x.links[li].To
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
