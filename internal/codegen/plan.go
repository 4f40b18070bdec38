package codegen

import (
	"container/heap"
	"strings"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

// region is a loop: the header loop node plus every node of its strongly
// connected component, ordered for emission inside the loop body.
type region struct {
	header  int
	members []int
	inside  map[int]bool
}

// unit is one top-level emission block: a chain of nodes or a loop region.
type unit struct {
	nodes  []int
	region *region
}

func (u unit) key() int {
	if u.region != nil {
		return u.region.header
	}
	return u.nodes[0]
}

type plan struct {
	x      *graph.Index
	a      *graph.Analysis
	live   []bool
	dead   []bool
	folded map[int]bool
	// regionOf maps a node to its loop region, nil outside loops.
	regionOf []*region
	units    []unit
}

func newPlan(w *graph.Workflow, level Level) (*plan, error) {
	x := graph.NewIndex(w)
	p := &plan{
		x:        x,
		a:        x.Analyze(),
		live:     make([]bool, x.Len()),
		dead:     make([]bool, x.LinkCount()),
		folded:   make(map[int]bool),
		regionOf: make([]*region, x.Len()),
	}

	for _, b := range p.a.BackEdges {
		if !p.a.Sanctioned(x, b) {
			l := x.Link(b.Link)
			return nil, internalError(x.Node(l.From).ID, "edge %q closes a cycle outside a loop", l.Edge.ID)
		}
	}

	if level.prunes() {
		p.fold()
		p.live = x.Reachable(x.Triggers(), func(li int) bool { return p.dead[li] })
	} else {
		for i := range p.live {
			p.live[i] = true
		}
	}

	if err := p.buildRegions(); err != nil {
		return nil, err
	}
	if err := p.order(); err != nil {
		return nil, err
	}
	if level.collapses() {
		p.collapse()
	}
	return p, nil
}

// fold records conditionals whose condition is a literal and marks the
// links of the branch that can never be taken.
func (p *plan) fold() {
	for i := 0; i < p.x.Len(); i++ {
		n := p.x.Node(i)
		if n.Kind != graph.KindConditional && n.Kind != graph.KindCondition {
			continue
		}
		value, ok := constantCondition(strings.TrimSpace(n.Data.Condition))
		if !ok {
			continue
		}
		p.folded[i] = value
		trueLinks, falseLinks := p.branchLinks(i)
		notTaken := falseLinks
		if !value {
			notTaken = trueLinks
		}
		for _, li := range notTaken {
			p.dead[li] = true
		}
	}
}

// branchLinks splits a conditional's outgoing links. Labelled edges go to
// their branch; the first unlabelled edge fills an unclaimed true branch, the
// next an unclaimed false branch, and any others follow the true branch.
func (p *plan) branchLinks(i int) (trueLinks, falseLinks []int) {
	var unlabelled []int
	for _, li := range p.x.OutLinks(i) {
		switch p.x.Link(li).Edge.Branch() {
		case "true":
			trueLinks = append(trueLinks, li)
		case "false":
			falseLinks = append(falseLinks, li)
		default:
			unlabelled = append(unlabelled, li)
		}
	}
	for _, li := range unlabelled {
		switch {
		case len(trueLinks) == 0:
			trueLinks = append(trueLinks, li)
		case len(falseLinks) == 0:
			falseLinks = append(falseLinks, li)
		default:
			trueLinks = append(trueLinks, li)
		}
	}
	return trueLinks, falseLinks
}

func (p *plan) follows(li int) bool {
	return !p.dead[li] && p.live[p.x.Link(li).To]
}

func (p *plan) buildRegions() error {
	byComponent := make(map[int]*region)
	var regions []*region
	firstMember := make(map[*region]int)
	for i := 0; i < p.x.Len(); i++ {
		if !p.live[i] || !p.a.InLoop[i] {
			continue
		}
		c := p.a.Component[i]
		r, ok := byComponent[c]
		if !ok {
			r = &region{header: -1, inside: make(map[int]bool)}
			byComponent[c] = r
			regions = append(regions, r)
			firstMember[r] = i
		}
		r.inside[i] = true
		if r.header < 0 && p.x.Node(i).Kind == graph.KindLoop {
			r.header = i
		}
	}

	for _, r := range regions {
		if r.header < 0 {
			return internalError(p.x.Node(firstMember[r]).ID, "loop body has no live loop node")
		}
		members, err := p.topo(func(i int) bool { return r.inside[i] && i != r.header }, func(li int) bool {
			l := p.x.Link(li)
			return l.From == r.header || l.To == r.header || p.a.IsBackEdge(li)
		})
		if err != nil {
			return err
		}
		r.members = members
		for i := range r.inside {
			p.regionOf[i] = r
		}
	}
	return nil
}

// topo orders the nodes selected by include with Kahn's algorithm. Links for
// which skip returns true are ignored. Ties break on input order.
func (p *plan) topo(include func(int) bool, skip func(int) bool) ([]int, error) {
	inDegree := make(map[int]int)
	var nodes []int
	for i := 0; i < p.x.Len(); i++ {
		if include(i) {
			nodes = append(nodes, i)
			inDegree[i] = 0
		}
	}
	for _, i := range nodes {
		for _, li := range p.x.OutLinks(i) {
			to := p.x.Link(li).To
			if _, ok := inDegree[to]; ok && p.follows(li) && !skip(li) {
				inDegree[to]++
			}
		}
	}

	queue := &intHeap{}
	for _, i := range nodes {
		if inDegree[i] == 0 {
			heap.Push(queue, i)
		}
	}

	result := make([]int, 0, len(nodes))
	for queue.Len() > 0 {
		current := heap.Pop(queue).(int)
		result = append(result, current)
		for _, li := range p.x.OutLinks(current) {
			to := p.x.Link(li).To
			if _, ok := inDegree[to]; !ok || !p.follows(li) || skip(li) {
				continue
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				heap.Push(queue, to)
			}
		}
	}

	if len(result) != len(nodes) {
		for _, i := range nodes {
			if inDegree[i] > 0 {
				return nil, internalError(p.x.Node(i).ID, "node cannot be linearized")
			}
		}
	}
	return result, nil
}

// order linearizes the top level: every loop region is contracted to its
// header, and links inside a region are ignored.
func (p *plan) order() error {
	representative := func(i int) int {
		if r := p.regionOf[i]; r != nil {
			return r.header
		}
		return i
	}

	inDegree := make(map[int]int)
	for i := 0; i < p.x.Len(); i++ {
		if p.live[i] && representative(i) == i {
			inDegree[i] = 0
		}
	}
	for li := 0; li < p.x.LinkCount(); li++ {
		l := p.x.Link(li)
		if !p.live[l.From] || !p.follows(li) {
			continue
		}
		from, to := representative(l.From), representative(l.To)
		if from != to {
			inDegree[to]++
		}
	}

	queue := &intHeap{}
	for i := 0; i < p.x.Len(); i++ {
		if d, ok := inDegree[i]; ok && d == 0 {
			heap.Push(queue, i)
		}
	}

	for queue.Len() > 0 {
		current := heap.Pop(queue).(int)
		if r := p.regionOf[current]; r != nil {
			p.units = append(p.units, unit{region: r})
		} else {
			p.units = append(p.units, unit{nodes: []int{current}})
		}

		members := []int{current}
		if r := p.regionOf[current]; r != nil {
			members = append(members, r.members...)
		}
		for _, m := range members {
			for _, li := range p.x.OutLinks(m) {
				if !p.follows(li) {
					continue
				}
				to := representative(p.x.Link(li).To)
				if to == current {
					continue
				}
				inDegree[to]--
				if inDegree[to] == 0 {
					heap.Push(queue, to)
				}
			}
		}
	}

	if len(p.units) != len(inDegree) {
		for i := 0; i < p.x.Len(); i++ {
			if inDegree[i] > 0 {
				return internalError(p.x.Node(i).ID, "node cannot be linearized")
			}
		}
	}
	return nil
}

// liveSuccessors returns the distinct targets node i activates.
func (p *plan) liveSuccessors(i int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, li := range p.x.OutLinks(i) {
		to := p.x.Link(li).To
		if p.follows(li) && !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

func (p *plan) livePredecessors(i int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, li := range p.x.InLinks(i) {
		from := p.x.Link(li).From
		if p.live[from] && !p.dead[li] && !seen[from] {
			seen[from] = true
			out = append(out, from)
		}
	}
	return out
}

func (p *plan) collapsible(i int) bool {
	if p.regionOf[i] != nil {
		return false
	}
	if _, folded := p.folded[i]; folded {
		return true
	}
	return !p.x.Node(i).Kind.IsBranching()
}

// collapse merges maximal straight-line runs into single units. A node joins
// the run of its predecessor when each is the other's only live neighbour;
// since its only dependency is the run's tail, pulling it forward keeps the
// order topological.
func (p *plan) collapse() {
	consumed := make(map[int]bool)
	var units []unit

	for _, u := range p.units {
		if u.region != nil {
			units = append(units, u)
			continue
		}
		head := u.nodes[0]
		if consumed[head] {
			continue
		}
		chain := []int{head}
		consumed[head] = true

		for tail := head; p.collapsible(tail) && p.x.Node(tail).Kind != graph.KindEnd; {
			succ := p.liveSuccessors(tail)
			if len(succ) != 1 {
				break
			}
			next := succ[0]
			if consumed[next] || !p.collapsible(next) || len(p.livePredecessors(next)) != 1 {
				break
			}
			chain = append(chain, next)
			consumed[next] = true
			tail = next
		}
		units = append(units, unit{nodes: chain})
	}
	p.units = units
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
