package graph

import (
	"errors"
	"testing"
)

const linearJSON = `{
  "name": "order flow",
  "nodes": [
    {"id": "t1", "type": "trigger", "data": {"label": "Start"}, "position": {"x": 0, "y": 0}},
    {"id": "a1", "type": "activity", "data": {"label": "Charge", "activityName": "chargeCard", "retryPolicy": {"strategy": "fail-after-x", "maxAttempts": 3}}},
    {"id": "e1", "type": "end", "data": {}}
  ],
  "edges": [
    {"id": "x1", "source": "t1", "target": "a1"},
    {"id": "x2", "source": "a1", "target": "e1"}
  ],
  "variables": [{"name": "orderId", "type": "string"}],
  "settings": {"taskQueue": "orders"}
}`

func TestParse(t *testing.T) {
	w, err := Parse([]byte(linearJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if w.NodeCount() != 3 || w.EdgeCount() != 2 {
		t.Errorf("expected 3 nodes and 2 edges, got %d and %d", w.NodeCount(), w.EdgeCount())
	}
	if w.Nodes[1].Kind != KindActivity {
		t.Errorf("expected activity kind, got %s", w.Nodes[1].Kind)
	}
	if got := w.Nodes[1].Data.RetryPolicy.Attempts(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if got := w.Settings.EffectiveTaskQueue(); got != "orders" {
		t.Errorf("expected task queue 'orders', got %q", got)
	}
	if got := w.Settings.EffectiveTimeout(); got != DefaultTimeout {
		t.Errorf("expected default timeout, got %q", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"not json", `this is not json`, ""},
		{"wrong top level", `[1, 2, 3]`, ""},
		{"unknown kind", `{"nodes": [{"id": "n1", "type": "teleport"}], "edges": []}`, "nodes[0].type"},
		{"missing node id", `{"nodes": [{"type": "trigger"}], "edges": []}`, "nodes[0].id"},
		{"missing edge target", `{"nodes": [], "edges": [{"id": "e", "source": "a"}]}`, "edges[0].target"},
		{"unknown variable type", `{"nodes": [], "edges": [], "variables": [{"name": "v", "type": "date"}]}`, "variables[0].type"},
		{"unknown retry strategy", `{"nodes": [{"id": "r", "type": "retry", "data": {"retryPolicy": {"strategy": "forever"}}}], "edges": []}`, "nodes[0].data.retryPolicy.strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
			var merr *MalformedInputError
			if !errors.As(err, &merr) {
				t.Fatalf("expected *MalformedInputError, got %T", err)
			}
			if merr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, merr.Field)
			}
		})
	}
}

// Semantic gaps such as a retry node without attempts are left for validation.
func TestParse_SemanticGapsAreAccepted(t *testing.T) {
	input := `{"nodes": [
		{"id": "r1", "type": "retry", "data": {"retryPolicy": {"strategy": "exponential-backoff"}}},
		{"id": "a1", "type": "activity", "data": {}}
	], "edges": []}`

	if _, err := Parse([]byte(input)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
}

func TestParseYAML(t *testing.T) {
	input := `
name: yaml flow
nodes:
  - id: t1
    type: trigger
  - id: s1
    type: state-variable
    data:
      config:
        name: counter
        type: number
        defaultValue: 0
edges:
  - id: e1
    source: t1
    target: s1
`
	w, err := ParseYAML([]byte(input))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}

	sv, err := w.Nodes[1].StateVariable()
	if err != nil {
		t.Fatalf("StateVariable failed: %v", err)
	}
	if sv.Name != "counter" || sv.Type != "number" || sv.Operation != "set" {
		t.Errorf("unexpected state variable config: %+v", sv)
	}
}

func TestCallableRef(t *testing.T) {
	tests := []struct {
		data NodeData
		want string
	}{
		{NodeData{ActivityName: "a", ComponentName: "b", ComponentID: "c"}, "a"},
		{NodeData{ComponentName: "b", ComponentID: "c"}, "b"},
		{NodeData{ComponentID: "c"}, "c"},
		{NodeData{}, ""},
	}

	for _, tt := range tests {
		n := Node{Data: tt.data}
		if got := n.CallableRef(); got != tt.want {
			t.Errorf("CallableRef(%+v) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestEdgeBranch(t *testing.T) {
	tests := []struct {
		edge Edge
		want string
	}{
		{Edge{SourceHandle: "true"}, "true"},
		{Edge{SourceHandle: "False"}, "false"},
		{Edge{Label: "yes"}, "true"},
		{Edge{Label: "else"}, "false"},
		{Edge{Label: "next"}, ""},
	}
	for _, tt := range tests {
		if got := tt.edge.Branch(); got != tt.want {
			t.Errorf("Branch(%+v) = %q, want %q", tt.edge, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	valid := map[string]string{"1m": "1m0s", "30s": "30s", "500ms": "500ms", "2d": "48h0m0s", "1h30m": "1h30m0s"}
	for in, want := range valid {
		d, err := ParseDuration(in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", in, err)
			continue
		}
		if d.String() != want {
			t.Errorf("ParseDuration(%q) = %s, want %s", in, d, want)
		}
	}

	for _, in := range []string{"", "soon", "-5s", "xd"} {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) expected error", in)
		}
	}
}
