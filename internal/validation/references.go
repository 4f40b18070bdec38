package validation

import (
	"regexp"
	"sort"
	"time"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

// refPattern matches {{name}} and ${name} references inside config strings.
// Only the leading identifier is captured; "{{order.id}}" refers to "order".
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)[^}]*\}\}|\$\{\s*([A-Za-z_][A-Za-z0-9_]*)[^}]*\}`)

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Names always in scope inside generated workflow code.
var builtinRefs = map[string]bool{
	"input":    true,
	"state":    true,
	"results":  true,
	"workflow": true,
	"env":      true,
	"trigger":  true,
}

func optionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return graph.ParseDuration(s)
}

// variables reports duplicate declarations, declared variables nothing uses,
// and template references that resolve to neither a variable nor a node.
func (c *checker) variables() {
	declared := make(map[string]bool, len(c.w.Variables))
	for _, v := range c.w.Variables {
		if declared[v.Name] {
			c.add(diagnostic.Errorf(diagnostic.PhaseSemantics, diagnostic.CodeDuplicateVariable,
				"variable %q is declared more than once", v.Name))
		}
		declared[v.Name] = true
	}

	used := make(map[string]bool)
	for i := 0; i < c.x.Len(); i++ {
		n := c.x.Node(i)

		unknown := make(map[string]bool)
		for _, s := range nodeStrings(n) {
			for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
				name := m[1]
				if name == "" {
					name = m[2]
				}
				used[name] = true
				if _, isNode := c.x.Lookup(name); !declared[name] && !isNode && !builtinRefs[name] {
					unknown[name] = true
				}
			}
		}
		for _, s := range []string{n.Data.Condition, loopCondition(n)} {
			for _, ident := range identPattern.FindAllString(s, -1) {
				used[ident] = true
			}
		}
		if n.Kind == graph.KindStateVariable {
			if cfg, err := n.StateVariable(); err == nil {
				used[cfg.Name] = true
			}
		}

		for _, name := range sortedKeys(unknown) {
			c.add(diagnostic.Warnf(diagnostic.PhaseSemantics, diagnostic.CodeUnknownReference,
				"reference %q matches no variable or node", name).OnNode(n.ID))
		}
	}

	for _, v := range c.w.Variables {
		if !used[v.Name] {
			used[v.Name] = true
			c.add(diagnostic.Warnf(diagnostic.PhaseSemantics, diagnostic.CodeUnusedVariable,
				"variable %q is never referenced", v.Name))
		}
	}
}

func loopCondition(n *graph.Node) string {
	if n.Kind != graph.KindLoop {
		return ""
	}
	cfg, err := n.Loop()
	if err != nil {
		return ""
	}
	return cfg.Condition
}

// nodeStrings collects every string value in the node's config, depth first.
func nodeStrings(n *graph.Node) []string {
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			for _, k := range sortedKeys(t) {
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(n.Data.Config)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
