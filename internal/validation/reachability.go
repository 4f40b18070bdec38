package validation

import (
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

// reachability walks breadth-first from every trigger. Nodes never reached
// are reported, as are reached nodes other than end that lead nowhere.
func (c *checker) reachability() {
	seen := c.x.Reachable(c.x.Triggers(), nil)

	for i := 0; i < c.x.Len(); i++ {
		n := c.x.Node(i)
		if !seen[i] {
			c.add(diagnostic.Warnf(diagnostic.PhaseReachability, diagnostic.CodeUnreachableNode,
				"node %q cannot be reached from any trigger", n.DisplayName()).OnNode(n.ID))
			continue
		}
		if n.Kind != graph.KindEnd && len(c.x.OutLinks(i)) == 0 {
			c.add(diagnostic.Warnf(diagnostic.PhaseReachability, diagnostic.CodeDeadEnd,
				"node %q has no outgoing edges and is not an end node", n.DisplayName()).OnNode(n.ID))
		}
	}
}
