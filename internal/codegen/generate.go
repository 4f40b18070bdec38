// Package codegen lowers a validated workflow graph into TypeScript source
// for the Temporal SDK: the workflow definition, activity stubs, a worker
// bootstrap and the manifests needed to build them.
package codegen

import (
	"fmt"

	"github.com/sflowg/workflow-compiler/internal/graph"
)

const defaultMaxIterations = 1000

type signalDecl struct {
	Const string
	Name  string
}

type activityStub struct {
	Name   string
	Source string
}

type generator struct {
	w    *graph.Workflow
	opts Options
	p    *plan
	out  *writer

	current string
	timeout string

	proxies    *proxySet
	callProxy  map[int]*proxy
	signals    []signalDecl
	signalOf   map[string]string
	activities []activityStub
	stubbed    map[string]bool
	usesChild  bool
	usesPhase  bool
	usesActive bool
	terminated bool

	steps []Step
}

// Generate produces the source bundle for w. Generation is deterministic:
// identical input and options yield byte-identical output.
func Generate(w *graph.Workflow, opts Options) (b *Bundle, err error) {
	g := &generator{
		w:         w,
		opts:      opts,
		out:       &writer{depth: 1, comments: opts.IncludeComments},
		proxies:   newProxySet(),
		callProxy: make(map[int]*proxy),
		signalOf:  make(map[string]string),
		stubbed:   make(map[string]bool),
	}
	if len(w.Nodes) > 0 {
		g.current = w.Nodes[0].ID
	}

	defer func() {
		if r := recover(); r != nil {
			b, err = nil, internalError(g.current, "generator panic: %v", r)
		}
	}()

	if g.opts.OptimizationLevel == "" {
		g.opts.OptimizationLevel = LevelNone
	}
	if _, err := ParseLevel(string(g.opts.OptimizationLevel)); err != nil {
		return nil, internalError(g.current, "%v", err)
	}

	g.timeout = w.Settings.Timeout
	if g.timeout == "" {
		g.timeout = opts.DefaultTimeout
	}
	if g.timeout == "" {
		g.timeout = graph.DefaultTimeout
	}

	if g.p, err = newPlan(w, g.opts.OptimizationLevel); err != nil {
		return nil, err
	}
	if err := g.collect(); err != nil {
		return nil, err
	}
	if err := g.emitBody(); err != nil {
		return nil, err
	}
	return g.render()
}

func (g *generator) strict() bool { return g.opts.StrictMode }

// dynamicType is the type used where a value's shape is unknown.
func (g *generator) dynamicType() string {
	if g.strict() {
		return "unknown"
	}
	return "any"
}

// collect walks live nodes in input order and registers the proxies,
// signals and activity stubs the body will reference.
func (g *generator) collect() error {
	if _, err := g.proxies.get(g.timeout, g.w.Settings.RetryPolicy); err != nil {
		return internalError(g.current, "workflow settings %v", err)
	}

	x := g.p.x
	for i := 0; i < x.Len(); i++ {
		if !g.p.live[i] {
			continue
		}
		n := x.Node(i)
		g.current = n.ID

		switch n.Kind {
		case graph.KindActivity, graph.KindAgent, graph.KindRetry:
			ref := n.CallableRef()
			if ref == "" {
				if n.Kind == graph.KindRetry {
					continue
				}
				return internalError(n.ID, "%s node has no callable reference", n.Kind)
			}
			name := ref
			if !isIdentifier(ref) {
				if g.strict() {
					return strictError(n.ID, "callable reference %q is not a valid identifier", ref)
				}
				name = identifier(ref, "activity")
			}
			if !g.stubbed[name] {
				g.stubbed[name] = true
				g.activities = append(g.activities, activityStub{Name: name, Source: ref})
			}

			timeout := n.Data.Timeout
			if timeout == "" {
				timeout = g.timeout
			}
			px, err := g.proxies.get(timeout, g.policyFor(i))
			if err != nil {
				return internalError(n.ID, "%v", err)
			}
			g.callProxy[i] = px

		case graph.KindSignal:
			name := n.Data.SignalName
			if name == "" {
				return internalError(n.ID, "signal node has no signal name")
			}
			if _, ok := g.signalOf[name]; !ok {
				constName := identifier(name, "signal") + "Signal"
				for k := 2; g.signalTaken(constName); k++ {
					constName = fmt.Sprintf("%sSignal%d", identifier(name, "signal"), k)
				}
				g.signalOf[name] = constName
				g.signals = append(g.signals, signalDecl{Const: constName, Name: name})
			}

		case graph.KindChildWorkflow:
			g.usesChild = true

		case graph.KindPhase:
			g.usesPhase = true
		}
	}
	return nil
}

func (g *generator) signalTaken(name string) bool {
	for _, s := range g.signals {
		if s.Const == name {
			return true
		}
	}
	return false
}

// policyFor resolves the retry policy of a call: its own, else that of a
// retry scope node directly in front of it, else the workflow default.
func (g *generator) policyFor(i int) *graph.RetryPolicy {
	n := g.p.x.Node(i)
	if n.Data.RetryPolicy != nil {
		return n.Data.RetryPolicy
	}
	if preds := g.p.livePredecessors(i); len(preds) == 1 {
		pred := g.p.x.Node(preds[0])
		if pred.Kind == graph.KindRetry && pred.CallableRef() == "" && pred.Data.RetryPolicy != nil {
			return pred.Data.RetryPolicy
		}
	}
	return g.w.Settings.RetryPolicy
}
