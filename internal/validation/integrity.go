package validation

import (
	"fmt"
	"strings"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
)

// integrity reports duplicate ids, dangling edges and a missing entry point.
// It returns whether at least one trigger exists.
func (c *checker) integrity() bool {
	for _, n := range c.x.Duplicates() {
		c.add(diagnostic.Errorf(diagnostic.PhaseIntegrity, diagnostic.CodeDuplicateNodeID,
			"node id %q is used more than once", n.ID).OnNode(n.ID))
	}

	seen := make(map[string]bool, len(c.w.Edges))
	for _, e := range c.w.Edges {
		if seen[e.ID] {
			c.add(diagnostic.Errorf(diagnostic.PhaseIntegrity, diagnostic.CodeDuplicateEdgeID,
				"edge id %q is used more than once", e.ID).OnEdge(e.ID))
		}
		seen[e.ID] = true
	}

	for _, e := range c.x.Dangling() {
		var missing []string
		if _, ok := c.x.Lookup(e.Source); !ok {
			missing = append(missing, fmt.Sprintf("source %q", e.Source))
		}
		if _, ok := c.x.Lookup(e.Target); !ok {
			missing = append(missing, fmt.Sprintf("target %q", e.Target))
		}
		c.add(diagnostic.Errorf(diagnostic.PhaseIntegrity, diagnostic.CodeDanglingEdge,
			"edge references unknown %s", strings.Join(missing, " and ")).OnEdge(e.ID))
	}

	if len(c.x.Triggers()) == 0 {
		c.add(diagnostic.Errorf(diagnostic.PhaseIntegrity, diagnostic.CodeNoStartNode,
			"workflow has no trigger node to start from"))
		return false
	}
	return true
}
