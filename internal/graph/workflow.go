package graph

import "strings"

const (
	DefaultTimeout   = "1m"
	DefaultTaskQueue = "default"
)

// Position is the node's location on the authoring canvas. It carries no
// compilation semantics.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData holds the attributes a node may carry. Which fields matter
// depends on the node kind.
type NodeData struct {
	Label         string         `json:"label,omitempty" yaml:"label,omitempty"`
	ComponentID   string         `json:"componentId,omitempty" yaml:"componentId,omitempty"`
	ComponentName string         `json:"componentName,omitempty" yaml:"componentName,omitempty"`
	ActivityName  string         `json:"activityName,omitempty" yaml:"activityName,omitempty"`
	SignalName    string         `json:"signalName,omitempty" yaml:"signalName,omitempty"`
	WorkflowID    string         `json:"workflowId,omitempty" yaml:"workflowId,omitempty"`
	Condition     string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	TriggerType   string         `json:"triggerType,omitempty" yaml:"triggerType,omitempty"`
	Schedule      string         `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Timeout       string         `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryPolicy   *RetryPolicy   `json:"retryPolicy,omitempty" yaml:"retryPolicy,omitempty" validate:"omitempty"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// Node is a single vertex of the workflow graph.
type Node struct {
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Kind     Kind     `json:"type" yaml:"type" validate:"required,nodekind"`
	Data     NodeData `json:"data" yaml:"data"`
	Position Position `json:"position" yaml:"position"`
}

// CallableRef returns the name of the activity the node invokes. The explicit
// activity name wins over the component name, which wins over the component id.
func (n *Node) CallableRef() string {
	switch {
	case n.Data.ActivityName != "":
		return n.Data.ActivityName
	case n.Data.ComponentName != "":
		return n.Data.ComponentName
	default:
		return n.Data.ComponentID
	}
}

// DisplayName returns the label, falling back to the id.
func (n *Node) DisplayName() string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return n.ID
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	Source       string `json:"source" yaml:"source" validate:"required"`
	Target       string `json:"target" yaml:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Branch returns the branch this edge leaves a conditional from: "true",
// "false", or "" when the edge is unlabelled.
func (e *Edge) Branch() string {
	for _, s := range []string{e.SourceHandle, e.Label, e.Type} {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "then":
			return "true"
		case "false", "no", "else":
			return "false"
		}
	}
	return ""
}

// Settings are workflow-wide execution defaults.
type Settings struct {
	Timeout     string       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryPolicy *RetryPolicy `json:"retryPolicy,omitempty" yaml:"retryPolicy,omitempty" validate:"omitempty"`
	TaskQueue   string       `json:"taskQueue,omitempty" yaml:"taskQueue,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string       `json:"version,omitempty" yaml:"version,omitempty"`
}

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (s Settings) EffectiveTimeout() string {
	if s.Timeout == "" {
		return DefaultTimeout
	}
	return s.Timeout
}

// EffectiveTaskQueue returns the configured task queue or DefaultTaskQueue.
func (s Settings) EffectiveTaskQueue() string {
	if s.TaskQueue == "" {
		return DefaultTaskQueue
	}
	return s.TaskQueue
}

// Workflow is the complete graph submitted for compilation. It is built
// fresh for each request and never mutated by the compiler.
type Workflow struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string     `json:"name" yaml:"name"`
	Nodes     []Node     `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges     []Edge     `json:"edges" yaml:"edges" validate:"dive"`
	Variables []Variable `json:"variables,omitempty" yaml:"variables,omitempty" validate:"dive"`
	Settings  Settings   `json:"settings" yaml:"settings"`
}

// NodeCount and EdgeCount feed compilation metadata.
func (w *Workflow) NodeCount() int { return len(w.Nodes) }
func (w *Workflow) EdgeCount() int { return len(w.Edges) }

// Node returns the first node with the given id.
func (w *Workflow) Node(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// Triggers returns the ids of all trigger nodes in input order.
func (w *Workflow) Triggers() []string {
	var ids []string
	for _, n := range w.Nodes {
		if n.Kind == KindTrigger {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
