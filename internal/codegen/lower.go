package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

// Step describes one emitted orchestration block.
type Step struct {
	Index   int      `json:"index"`
	Kind    string   `json:"kind"`
	NodeIDs []string `json:"nodeIds"`
}

const (
	stepNode     = "node"
	stepSequence = "sequence"
	stepLoop     = "loop"
)

func (g *generator) emitBody() error {
	for _, u := range g.p.units {
		var err error
		if u.region != nil {
			err = g.emitLoop(u.region)
		} else {
			err = g.emitChain(u.nodes)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) addStep(kind string, nodes []int) int {
	ids := make([]string, len(nodes))
	for k, i := range nodes {
		ids[k] = g.p.x.Node(i).ID
	}
	g.steps = append(g.steps, Step{Index: len(g.steps) + 1, Kind: kind, NodeIDs: ids})
	return len(g.steps)
}

func (g *generator) describe(i int) string {
	n := g.p.x.Node(i)
	if n.Data.Label != "" && n.Data.Label != n.ID {
		return fmt.Sprintf("%s %q (%s)", n.Kind, n.Data.Label, n.ID)
	}
	return fmt.Sprintf("%s (%s)", n.Kind, n.ID)
}

// emitChain writes a straight-line run as one block guarded by its head.
// Triggers run unconditionally.
func (g *generator) emitChain(nodes []int) error {
	kind := stepNode
	if len(nodes) > 1 {
		kind = stepSequence
	}
	no := g.addStep(kind, nodes)

	head := g.p.x.Node(nodes[0])
	g.out.line("")
	g.out.comment("Step %d: %s", no, g.describe(nodes[0]))
	if head.Kind == graph.KindTrigger {
		g.out.open("")
	} else {
		g.out.open("if (active.has(%s))", tsString(head.ID))
		g.usesActive = true
	}

	for k, i := range nodes {
		next := -1
		if k+1 < len(nodes) {
			next = nodes[k+1]
		}
		if k > 0 {
			g.out.comment("then %s", g.describe(i))
		}
		if err := g.lowerNode(i, next, nil); err != nil {
			return err
		}
	}
	g.out.close()

	last := g.p.x.Node(nodes[len(nodes)-1])
	g.terminated = head.Kind == graph.KindTrigger && last.Kind == graph.KindEnd
	return nil
}

// emitLoop writes a loop region: the header's iteration bound, the body
// nodes as guarded sub-blocks, then activation of the loop's exits.
func (g *generator) emitLoop(r *region) error {
	no := g.addStep(stepLoop, append([]int{r.header}, r.members...))
	h := g.p.x.Node(r.header)
	g.current = h.ID

	cfg, err := h.Loop()
	if err != nil {
		return internalError(h.ID, "%v", err)
	}
	limit := cfg.MaxIterations
	if limit <= 0 {
		limit = defaultMaxIterations
		if strings.TrimSpace(cfg.Condition) == "" && cfg.Collection == "" {
			limit = 1
		}
	}
	counter := fmt.Sprintf("i_%d", r.header)
	g.usesActive = true

	g.out.line("")
	g.out.comment("Step %d: %s", no, g.describe(r.header))
	g.out.open("if (active.has(%s))", tsString(h.ID))

	switch {
	case cfg.Collection != "":
		items := fmt.Sprintf("items_%d", r.header)
		g.out.line("const %s = (state[%s] ?? []) as unknown[];", items, tsString(cfg.Collection))
		g.out.open("for (let %s = 0; %s < %s.length && %s < %d; %s++)", counter, counter, items, counter, limit, counter)
		g.out.line("state['item'] = %s[%s];", items, counter)
	case strings.TrimSpace(cfg.Condition) != "":
		g.out.open("for (let %s = 0; %s < %d && (%s); %s++)", counter, counter, limit, strings.TrimSpace(cfg.Condition), counter)
	default:
		g.out.open("for (let %s = 0; %s < %d; %s++)", counter, counter, limit, counter)
	}

	if len(r.members) > 0 {
		ids := make([]string, len(r.members))
		for k, m := range r.members {
			ids[k] = tsString(g.p.x.Node(m).ID)
		}
		g.out.open("for (const id of [%s])", strings.Join(ids, ", "))
		g.out.line("active.delete(id);")
		g.out.close()
	}
	g.activate(r.header, func(to int) bool { return !r.inside[to] })

	for _, m := range r.members {
		g.out.comment("%s", g.describe(m))
		g.out.open("if (active.has(%s))", tsString(g.p.x.Node(m).ID))
		if err := g.lowerNode(m, -1, r); err != nil {
			return err
		}
		g.out.close()
	}
	g.out.close()

	g.activate(r.header, func(to int) bool { return r.inside[to] })
	g.out.close()
	g.terminated = false
	return nil
}

// activate writes active.add calls for the live successors of node i that
// skip does not exclude.
func (g *generator) activate(i int, skip func(to int) bool) {
	seen := make(map[int]bool)
	for _, li := range g.p.x.OutLinks(i) {
		to := g.p.x.Link(li).To
		if !g.p.follows(li) || seen[to] || (skip != nil && skip(to)) {
			continue
		}
		seen[to] = true
		g.out.line("active.add(%s);", tsString(g.p.x.Node(to).ID))
		g.usesActive = true
	}
}

// lowerNode writes the statements for one node. next is the following node
// of a collapsed run, which needs no activation; r is the enclosing loop.
func (g *generator) lowerNode(i, next int, r *region) error {
	n := g.p.x.Node(i)
	g.current = n.ID
	id := tsString(n.ID)

	skip := func(to int) bool {
		if to == next {
			return true
		}
		return r != nil && to == r.header
	}

	switch n.Kind {
	case graph.KindTrigger:
		if n.Data.TriggerType != "" {
			g.out.comment("trigger type: %s %s", n.Data.TriggerType, n.Data.Schedule)
		}

	case graph.KindActivity, graph.KindAgent:
		if n.Kind == graph.KindAgent {
			g.out.comment("agent step backed by activity %s", n.CallableRef())
		}
		g.call(i)

	case graph.KindRetry:
		if n.CallableRef() == "" {
			g.out.comment("retry scope: %s applies to the next call", n.Data.RetryPolicy.String())
			break
		}
		g.call(i)

	case graph.KindConditional, graph.KindCondition:
		if value, ok := g.p.folded[i]; ok {
			g.out.comment("condition %q is always %t", n.Data.Condition, value)
			break
		}
		return g.branch(i, r)

	case graph.KindLoop:
		// A loop node nested in another loop's body acts as an exit check.
		if r == nil {
			return internalError(n.ID, "loop node is not part of a cycle")
		}
		cfg, err := n.Loop()
		if err != nil {
			return internalError(n.ID, "%v", err)
		}
		if cond := strings.TrimSpace(cfg.Condition); cond != "" {
			g.out.open("if (!(%s))", cond)
			g.out.line("break;")
			g.out.close()
		}

	case graph.KindChildWorkflow:
		if n.Data.WorkflowID == "" {
			return internalError(n.ID, "child workflow node has no workflowId")
		}
		g.out.line("results[%s] = await executeChild(%s, {", id, tsString(n.Data.WorkflowID))
		g.out.line("  args: [state],")
		g.out.line("  workflowId: `${workflowInfo().workflowId}-%s`,", sanitizeID(n.ID))
		g.out.line("});")

	case graph.KindSignal:
		name := tsString(n.Data.SignalName)
		if n.Data.Timeout == "" {
			g.out.line("await condition(() => signals.has(%s));", name)
			g.out.line("results[%s] = signals.get(%s);", id, name)
			break
		}
		timeout, err := tsDuration(n.Data.Timeout)
		if err != nil {
			return internalError(n.ID, "signal timeout: %v", err)
		}
		received := fmt.Sprintf("received_%d", i)
		g.out.line("const %s = await condition(() => signals.has(%s), %s);", received, name, timeout)
		g.out.line("results[%s] = %s ? signals.get(%s) : undefined;", id, received, name)

	case graph.KindPhase:
		g.out.line("currentPhase = %s;", tsString(n.DisplayName()))

	case graph.KindStateVariable:
		if err := g.stateVariable(n); err != nil {
			return err
		}

	case graph.KindAPIEndpoint:
		cfg, err := n.APIEndpoint()
		if err != nil {
			return internalError(n.ID, "%v", err)
		}
		g.out.comment("exposed as %s %s", strings.ToUpper(cfg.Method), cfg.Path)
		g.out.line("results[%s] = { method: %s, path: %s, request: input };",
			id, tsString(strings.ToUpper(cfg.Method)), tsString(cfg.Path))

	case graph.KindEnd:
		g.out.line("return { success: true, state, results };")
		return nil

	default:
		return &Error{
			Code:    diagnostic.CodeUnsupportedNodeKind,
			NodeID:  n.ID,
			Message: fmt.Sprintf("node kind %q has no lowering", n.Kind),
		}
	}

	g.activate(i, skip)
	return nil
}

func (g *generator) call(i int) {
	n := g.p.x.Node(i)
	px := g.callProxy[i]
	name := n.CallableRef()
	if !isIdentifier(name) {
		name = identifier(name, "activity")
		g.out.comment("activity %q is exported as %s", n.CallableRef(), name)
	}
	g.out.line("results[%s] = await %s.%s(state);", tsString(n.ID), px.Name, name)
}

// branch lowers a conditional: the condition selects which branch targets
// are activated.
func (g *generator) branch(i int, r *region) error {
	n := g.p.x.Node(i)
	cond := strings.TrimSpace(n.Data.Condition)
	if cond == "" {
		if g.strict() {
			return strictError(n.ID, "%s node has no condition", n.Kind)
		}
		g.out.comment("no condition set, the true branch is always taken")
		cond = "true"
	}

	targets := func(links []int) []string {
		var out []string
		seen := make(map[int]bool)
		for _, li := range links {
			to := g.p.x.Link(li).To
			if !g.p.follows(li) || seen[to] || (r != nil && to == r.header) {
				continue
			}
			seen[to] = true
			out = append(out, tsString(g.p.x.Node(to).ID))
		}
		return out
	}
	trueLinks, falseLinks := g.p.branchLinks(i)
	onTrue, onFalse := targets(trueLinks), targets(falseLinks)
	g.usesActive = true

	g.out.open("if (%s)", cond)
	for _, t := range onTrue {
		g.out.line("active.add(%s);", t)
	}
	if len(onFalse) > 0 {
		g.out.reopen("else")
		for _, t := range onFalse {
			g.out.line("active.add(%s);", t)
		}
	}
	g.out.close()
	return nil
}

func (g *generator) stateVariable(n *graph.Node) error {
	cfg, err := n.StateVariable()
	if err != nil {
		return internalError(n.ID, "%v", err)
	}
	if cfg.Name == "" {
		return internalError(n.ID, "state variable has no name")
	}
	key := tsString(cfg.Name)

	value := cfg.Value
	if value == nil {
		value = cfg.DefaultValue
	}
	literal, err := json.Marshal(value)
	if err != nil {
		return internalError(n.ID, "state variable value: %v", err)
	}

	switch cfg.Operation {
	case "increment":
		step := "1"
		if value != nil {
			step = string(literal)
		}
		g.out.line("state[%s] = Number(state[%s] ?? 0) + Number(%s);", key, key, step)
	case "append":
		g.out.line("state[%s] = [...((state[%s] as unknown[] | undefined) ?? []), %s];", key, key, literal)
	case "clear":
		g.out.line("delete state[%s];", key)
	default:
		g.out.line("state[%s] = %s;", key, literal)
	}
	return nil
}
