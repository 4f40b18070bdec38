package validation

import (
	"sort"
	"strings"

	"github.com/Jeffail/gabs/v2"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true, "HEAD": true, "OPTIONS": true,
}

var stateOperations = map[string]bool{"set": true, "increment": true, "append": true, "clear": true}

func semanticErr(code diagnostic.Code, nodeID, format string, args ...any) diagnostic.Diagnostic {
	return diagnostic.Errorf(diagnostic.PhaseSemantics, code, format, args...).OnNode(nodeID)
}

func (c *checker) semantics() {
	c.timeout("", "workflow settings", c.w.Settings.Timeout)
	c.retryPolicy("", "workflow settings", c.w.Settings.RetryPolicy, false)

	for i := 0; i < c.x.Len(); i++ {
		n := c.x.Node(i)
		c.timeout(n.ID, "node", n.Data.Timeout)
		c.retryPolicy(n.ID, "node", n.Data.RetryPolicy, n.Kind == graph.KindRetry)
		c.node(i, n)
	}

	c.variables()
}

func (c *checker) node(i int, n *graph.Node) {
	switch n.Kind {
	case graph.KindTrigger:
		if strings.EqualFold(n.Data.TriggerType, "schedule") && n.Data.Schedule == "" {
			c.add(semanticErr(diagnostic.CodeMissingRequiredField, n.ID, "scheduled trigger has no schedule"))
		}
	case graph.KindActivity, graph.KindAgent:
		if n.CallableRef() == "" {
			c.add(semanticErr(diagnostic.CodeMissingCallableReference, n.ID,
				"%s node %q does not name the activity it calls", n.Kind, n.DisplayName()))
		}
	case graph.KindSignal:
		if n.Data.SignalName == "" {
			c.add(semanticErr(diagnostic.CodeMissingCallableReference, n.ID,
				"signal node %q does not name the signal it waits for", n.DisplayName()))
		}
	case graph.KindChildWorkflow:
		if n.Data.WorkflowID == "" {
			c.add(semanticErr(diagnostic.CodeMissingRequiredField, n.ID,
				"child workflow node %q has no workflowId", n.DisplayName()))
		}
	case graph.KindConditional, graph.KindCondition:
		if strings.TrimSpace(n.Data.Condition) == "" {
			c.add(diagnostic.Warnf(diagnostic.PhaseSemantics, diagnostic.CodeMissingCondition,
				"%s node %q has no condition and always takes the true branch", n.Kind, n.DisplayName()).OnNode(n.ID))
		}
	case graph.KindLoop:
		c.loop(i, n)
	case graph.KindStateVariable:
		c.stateVariable(n)
	case graph.KindAPIEndpoint:
		c.apiEndpoint(n)
	case graph.KindRetry, graph.KindPhase, graph.KindEnd:
		// Covered by the shared timeout and retry checks.
	}
}

func (c *checker) loop(i int, n *graph.Node) {
	cfg, err := n.Loop()
	if err != nil {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "loop config: %v", err))
		return
	}
	// The body of a loop is the cycle through it; without one nothing repeats.
	if c.a != nil && !c.a.InLoop[i] {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID,
			"loop node %q is not part of a cycle, so it has no body to repeat", n.DisplayName()))
	}
	if cfg.MaxIterations < 0 {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "loop maxIterations must not be negative"))
	}
	if strings.TrimSpace(cfg.Condition) == "" && cfg.MaxIterations == 0 && cfg.Collection == "" {
		c.add(diagnostic.Warnf(diagnostic.PhaseSemantics, diagnostic.CodeMissingCondition,
			"loop node %q has no condition, collection or maxIterations", n.DisplayName()).OnNode(n.ID))
	}
}

func (c *checker) stateVariable(n *graph.Node) {
	cfg, err := n.StateVariable()
	if err != nil {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "state variable config: %v", err))
		return
	}
	if cfg.Name == "" {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "state variable has no name"))
	}
	if cfg.Type != "" && !graph.VariableType(cfg.Type).IsValid() {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "state variable type %q is not supported", cfg.Type))
	}
	if !stateOperations[cfg.Operation] {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "state variable operation %q is not supported", cfg.Operation))
	}
}

func (c *checker) apiEndpoint(n *graph.Node) {
	cfg, err := n.APIEndpoint()
	if err != nil {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "api endpoint config: %v", err))
		return
	}
	if !httpMethods[strings.ToUpper(cfg.Method)] {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "api endpoint method %q is not supported", cfg.Method))
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "api endpoint path %q must start with '/'", cfg.Path))
	}
	schemas := []struct {
		name   string
		schema map[string]any
	}{
		{"requestSchema", cfg.RequestSchema},
		{"responseSchema", cfg.ResponseSchema},
	}
	for _, s := range schemas {
		if s.schema == nil {
			continue
		}
		if msg := schemaProblem(gabs.Wrap(s.schema)); msg != "" {
			c.add(semanticErr(diagnostic.CodeInvalidNodeConfig, n.ID, "api endpoint %s: %s", s.name, msg))
		}
	}
}

// schemaProblem checks the minimal JSON schema shape the generated handler
// relies on: a string type, and for objects a properties map of schemas.
func schemaProblem(schema *gabs.Container) string {
	typ, ok := schema.Path("type").Data().(string)
	if !ok || typ == "" {
		return "schema must declare a string \"type\""
	}
	if typ != "object" || !schema.Exists("properties") {
		return ""
	}
	props := schema.Search("properties")
	if _, ok := props.Data().(map[string]any); !ok {
		return "\"properties\" must be an object"
	}
	children := props.ChildrenMap()
	keys := make([]string, 0, len(children))
	for key := range children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if msg := schemaProblem(children[key]); msg != "" {
			return "property " + key + ": " + msg
		}
	}
	return ""
}

func (c *checker) timeout(nodeID, owner, value string) {
	if value == "" {
		return
	}
	if _, err := graph.ParseDuration(value); err != nil {
		c.add(semanticErr(diagnostic.CodeInvalidTimeout, nodeID, "%s timeout: %v", owner, err))
	}
}

// retryPolicy checks a policy. required is set for retry nodes, which must
// always carry a bounded policy.
func (c *checker) retryPolicy(nodeID, owner string, p *graph.RetryPolicy, required bool) {
	if p == nil {
		if required {
			c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID,
				"retry node requires a retry policy with a positive maxAttempts"))
		}
		return
	}

	switch {
	case p.MaxAttempts != nil && *p.MaxAttempts <= 0:
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID,
			"%s retry policy maxAttempts must be positive, got %d", owner, *p.MaxAttempts))
	case p.MaxAttempts == nil && (required || p.Strategy.RequiresMaxAttempts()):
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID,
			"%s retry policy with strategy %q requires a positive maxAttempts", owner, p.Strategy))
	}

	if p.BackoffCoefficient != nil && *p.BackoffCoefficient < 1 {
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID,
			"%s retry policy backoffCoefficient must be at least 1", owner))
	}

	initial, initialErr := optionalDuration(p.InitialInterval)
	maximum, maxErr := optionalDuration(p.MaxInterval)
	if initialErr != nil {
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID, "%s retry policy initialInterval: %v", owner, initialErr))
	}
	if maxErr != nil {
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID, "%s retry policy maxInterval: %v", owner, maxErr))
	}
	if initialErr == nil && maxErr == nil && initial > 0 && maximum > 0 && initial > maximum {
		c.add(semanticErr(diagnostic.CodeInvalidRetryPolicy, nodeID,
			"%s retry policy initialInterval exceeds maxInterval", owner))
	}
}
