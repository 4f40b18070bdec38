package validation

import (
	"strings"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
)

// cycles reports every back edge that closes a cycle outside a loop structure.
func (c *checker) cycles() {
	a := c.x.Analyze()
	c.a = a

	for _, b := range a.BackEdges {
		if a.Sanctioned(c.x, b) {
			continue
		}
		path := make([]string, 0, len(b.Cycle)+1)
		for _, i := range b.Cycle {
			path = append(path, c.x.Node(i).ID)
		}
		path = append(path, path[0])

		l := c.x.Link(b.Link)
		c.add(diagnostic.Errorf(diagnostic.PhaseCycles, diagnostic.CodeCyclicGraph,
			"cycle detected outside a loop: %s", strings.Join(path, " → ")).
			OnEdge(l.Edge.ID))
	}
}
