package codegen

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

func parse(t *testing.T, src string) *graph.Workflow {
	t.Helper()
	w, err := graph.Parse([]byte(src))
	require.NoError(t, err)
	return w
}

const linear = `{
  "name": "linear",
  "nodes": [
    {"id": "t1", "type": "trigger", "data": {"label": "Start"}},
    {"id": "a1", "type": "activity", "data": {"label": "Work", "activityName": "doWork"}},
    {"id": "e1", "type": "end", "data": {}}
  ],
  "edges": [
    {"id": "x1", "source": "t1", "target": "a1"},
    {"id": "x2", "source": "a1", "target": "e1"}
  ]
}`

func stepIDs(steps []Step) [][]string {
	var out [][]string
	for _, s := range steps {
		out = append(out, s.NodeIDs)
	}
	return out
}

func TestGenerate_LinearStepsPerLevel(t *testing.T) {
	w := parse(t, linear)

	none, err := Generate(w, Options{OptimizationLevel: LevelNone})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"t1"}, {"a1"}, {"e1"}}, stepIDs(none.Steps))

	basic, err := Generate(w, Options{OptimizationLevel: LevelBasic})
	require.NoError(t, err)
	require.Len(t, basic.Steps, 1)
	assert.Equal(t, stepSequence, basic.Steps[0].Kind)
	assert.Equal(t, []string{"t1", "a1", "e1"}, basic.Steps[0].NodeIDs)

	for _, b := range []*Bundle{none, basic} {
		assert.Contains(t, b.Workflow, "export async function linearWorkflow(")
		assert.Contains(t, b.Workflow, "results['a1'] = await acts.doWork(state);")
		assert.Contains(t, b.Activities, "export async function doWork(")
		assert.Contains(t, b.Worker, "taskQueue: 'default'")
	}
	assert.Contains(t, none.Workflow, "if (active.has('a1')) {")
	assert.NotContains(t, basic.Workflow, "active")
}

func TestGenerate_IsDeterministic(t *testing.T) {
	w := parse(t, linear)
	opts := Options{IncludeComments: true, OptimizationLevel: LevelNone}

	first, err := Generate(w, opts)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Generate(w, opts)
		require.NoError(t, err)
		assert.Equal(t, first.Files(), again.Files())
		assert.Equal(t, first.Hash(), again.Hash())
	}
}

// stripComments drops comment and blank lines so that outputs generated
// with and without comments can be compared.
func stripComments(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func TestGenerate_CommentsOnlyAddLines(t *testing.T) {
	w := parse(t, loopWorkflow)

	with, err := Generate(w, Options{IncludeComments: true})
	require.NoError(t, err)
	without, err := Generate(w, Options{IncludeComments: false})
	require.NoError(t, err)

	assert.Contains(t, with.Workflow, "// Step 1: trigger")
	assert.NotContains(t, without.Workflow, "//")
	for i, f := range with.Files() {
		assert.Equal(t, stripComments(without.Files()[i].Content), stripComments(f.Content), f.Path)
	}
}

const loopWorkflow = `{
  "name": "poller",
  "nodes": [
    {"id": "t", "type": "trigger"},
    {"id": "l", "type": "loop", "data": {"condition": "state.count < 3", "config": {"maxIterations": 5}}},
    {"id": "b", "type": "activity", "data": {"activityName": "poll"}},
    {"id": "e", "type": "end"}
  ],
  "edges": [
    {"id": "x1", "source": "t", "target": "l"},
    {"id": "x2", "source": "l", "target": "b"},
    {"id": "x3", "source": "b", "target": "l"},
    {"id": "x4", "source": "l", "target": "e"}
  ],
  "variables": [{"name": "count", "type": "number", "defaultValue": 0}]
}`

func TestGenerate_Loop(t *testing.T) {
	b, err := Generate(parse(t, loopWorkflow), Options{OptimizationLevel: LevelBasic})
	require.NoError(t, err)

	require.Len(t, b.Steps, 3)
	assert.Equal(t, stepLoop, b.Steps[1].Kind)
	assert.Equal(t, []string{"l", "b"}, b.Steps[1].NodeIDs)

	assert.Contains(t, b.Workflow, "for (let i_1 = 0; i_1 < 5 && (state.count < 3); i_1++) {")
	assert.Contains(t, b.Workflow, "for (const id of ['b']) {")
	assert.Contains(t, b.Workflow, "count?: number;")
	assert.Contains(t, b.Workflow, "const defaults: Partial<PollerState> = { count: 0 };")

	loopAt := strings.Index(b.Workflow, "for (let i_1")
	exitAt := strings.Index(b.Workflow, "active.add('e');")
	assert.Greater(t, exitAt, loopAt, "loop exits are activated after the loop")
}

func TestGenerate_CollectionLoop(t *testing.T) {
	w := parse(t, `{
	  "name": "batch",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "each", "type": "loop", "data": {"config": {"collection": "orders"}}},
	    {"id": "stop", "type": "loop", "data": {"condition": "state.open"}},
	    {"id": "b", "type": "activity", "data": {"activityName": "ship"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "each"},
	    {"id": "x2", "source": "each", "target": "stop"},
	    {"id": "x3", "source": "stop", "target": "b"},
	    {"id": "x4", "source": "b", "target": "each"},
	    {"id": "x5", "source": "each", "target": "e"}
	  ]
	}`)

	b, err := Generate(w, Options{OptimizationLevel: LevelBasic})
	require.NoError(t, err)

	require.Len(t, b.Steps, 3)
	assert.Equal(t, stepLoop, b.Steps[1].Kind)
	assert.Equal(t, []string{"each", "stop", "b"}, b.Steps[1].NodeIDs)

	assert.Contains(t, b.Workflow, "const items_1 = (state['orders'] ?? []) as unknown[];")
	assert.Contains(t, b.Workflow, "for (let i_1 = 0; i_1 < items_1.length && i_1 < 1000; i_1++) {")
	assert.Contains(t, b.Workflow, "state['item'] = items_1[i_1];")
	assert.Contains(t, b.Workflow, "if (!(state.open)) {")

	loopAt := strings.Index(b.Workflow, "for (let i_1")
	breakAt := strings.Index(b.Workflow, "break;")
	require.Positive(t, breakAt)
	assert.Greater(t, breakAt, loopAt, "exit checks sit inside the loop body")
}

func TestGenerate_LoopWithoutCycleIsRejected(t *testing.T) {
	w := parse(t, `{
	  "name": "straight",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "l", "type": "loop", "data": {"condition": "state.n < 3"}},
	    {"id": "a", "type": "activity", "data": {"activityName": "work"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "l"},
	    {"id": "x2", "source": "l", "target": "a"},
	    {"id": "x3", "source": "a", "target": "e"}
	  ]
	}`)

	for _, level := range []Level{LevelNone, LevelBasic, LevelAggressive} {
		b, err := Generate(w, Options{OptimizationLevel: level})
		assert.Nil(t, b, level)
		var gerr *Error
		require.True(t, errors.As(err, &gerr), level)
		assert.Equal(t, diagnostic.CodeGenerationInternalError, gerr.Code)
		assert.Equal(t, "l", gerr.NodeID)
	}
}

func TestGenerate_TimedSignalLocalsAreUnique(t *testing.T) {
	w := parse(t, `{
	  "name": "two waits",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "s-1", "type": "signal", "data": {"signalName": "approve", "timeout": "1h"}},
	    {"id": "s_1", "type": "signal", "data": {"signalName": "confirm", "timeout": "2h"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "s-1"},
	    {"id": "x2", "source": "s-1", "target": "s_1"},
	    {"id": "x3", "source": "s_1", "target": "e"}
	  ]
	}`)

	b, err := Generate(w, Options{OptimizationLevel: LevelBasic})
	require.NoError(t, err)
	require.Len(t, b.Steps, 1)

	assert.Equal(t, 1, strings.Count(b.Workflow, "const received_1 ="))
	assert.Equal(t, 1, strings.Count(b.Workflow, "const received_2 ="))
	assert.Contains(t, b.Workflow, "results['s-1'] = received_1 ? signals.get('approve') : undefined;")
	assert.Contains(t, b.Workflow, "results['s_1'] = received_2 ? signals.get('confirm') : undefined;")
}

func TestGenerate_NonASCIINamesStayValidUTF8(t *testing.T) {
	w := parse(t, `{
	  "name": "Zahlung über",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "a", "type": "activity", "data": {"activityName": "send über"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "a"},
	    {"id": "x2", "source": "a", "target": "e"}
	  ]
	}`)

	b, err := Generate(w, Options{})
	require.NoError(t, err)
	for _, f := range b.Files() {
		assert.True(t, utf8.ValidString(f.Content), f.Path)
	}
	assert.Contains(t, b.Workflow, "export async function zahlungÜberWorkflow(")
	assert.Contains(t, b.Workflow, "results['a'] = await acts.sendÜber(state);")
	assert.Contains(t, b.Activities, "export async function sendÜber(")
}

func TestGenerate_AggressivePrunes(t *testing.T) {
	w := parse(t, `{
	  "name": "branching",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "c", "type": "conditional", "data": {"condition": "1 > 2"}},
	    {"id": "yes", "type": "activity", "data": {"activityName": "onYes"}},
	    {"id": "no", "type": "activity", "data": {"activityName": "onNo"}},
	    {"id": "orphan", "type": "activity", "data": {"activityName": "neverCalled"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "c"},
	    {"id": "x2", "source": "c", "target": "yes", "sourceHandle": "true"},
	    {"id": "x3", "source": "c", "target": "no", "sourceHandle": "false"},
	    {"id": "x4", "source": "yes", "target": "e"},
	    {"id": "x5", "source": "no", "target": "e"}
	  ]
	}`)

	basic, err := Generate(w, Options{OptimizationLevel: LevelBasic})
	require.NoError(t, err)
	assert.Contains(t, basic.Workflow, "if (1 > 2) {")
	assert.Contains(t, basic.Workflow, "acts.onYes(")
	assert.Contains(t, basic.Workflow, "acts.neverCalled(")

	aggressive, err := Generate(w, Options{OptimizationLevel: LevelAggressive})
	require.NoError(t, err)
	for _, gone := range []string{"onYes", "neverCalled", "if (1 > 2)"} {
		assert.NotContains(t, aggressive.Workflow, gone)
		assert.NotContains(t, aggressive.Activities, gone)
	}
	assert.Contains(t, aggressive.Workflow, "acts.onNo(")

	for _, s := range aggressive.Steps {
		assert.NotContains(t, s.NodeIDs, "orphan")
		assert.NotContains(t, s.NodeIDs, "yes")
	}
	// The folded conditional no longer branches, so the whole path collapses.
	require.Len(t, aggressive.Steps, 1)
	assert.Equal(t, []string{"t", "c", "no", "e"}, aggressive.Steps[0].NodeIDs)
}

func TestGenerate_StrictMode(t *testing.T) {
	tests := []struct {
		name      string
		node      string
		nonStrict string
	}{
		{
			name:      "conditional without condition",
			node:      `{"id": "n", "type": "conditional"}`,
			nonStrict: "if (true) {",
		},
		{
			name:      "callable that is not an identifier",
			node:      `{"id": "n", "type": "activity", "data": {"activityName": "send-email"}}`,
			nonStrict: "acts.sendEmail(state)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := parse(t, `{"name": "s", "nodes": [{"id": "t", "type": "trigger"}, `+tt.node+`, {"id": "e", "type": "end"}],
			  "edges": [{"id": "x1", "source": "t", "target": "n"}, {"id": "x2", "source": "n", "target": "e"}]}`)

			_, err := Generate(w, Options{StrictMode: true})
			var gerr *Error
			require.True(t, errors.As(err, &gerr), "expected *Error, got %v", err)
			assert.Equal(t, diagnostic.CodeStrictModeViolation, gerr.Code)
			assert.Equal(t, "n", gerr.NodeID)

			b, err := Generate(w, Options{StrictMode: false})
			require.NoError(t, err)
			assert.Contains(t, b.Workflow, tt.nonStrict)
		})
	}
}

func TestGenerate_StrictTyping(t *testing.T) {
	w := parse(t, linear)

	strict, err := Generate(w, Options{StrictMode: true})
	require.NoError(t, err)
	assert.Contains(t, strict.Workflow, "[key: string]: unknown;")
	assert.NotContains(t, strict.Activities, "any")

	loose, err := Generate(w, Options{StrictMode: false})
	require.NoError(t, err)
	assert.Contains(t, loose.Workflow, "[key: string]: any;")

	var cfg tsConfig
	require.NoError(t, json.Unmarshal([]byte(strict.BuildConfig), &cfg))
	assert.True(t, cfg.CompilerOptions.Strict)
	require.NoError(t, json.Unmarshal([]byte(loose.BuildConfig), &cfg))
	assert.False(t, cfg.CompilerOptions.Strict)
}

func TestGenerate_UnsupportedKind(t *testing.T) {
	w := &graph.Workflow{
		Name: "odd",
		Nodes: []graph.Node{
			{ID: "t", Kind: graph.KindTrigger},
			{ID: "m", Kind: graph.Kind("mystery")},
		},
		Edges: []graph.Edge{{ID: "x", Source: "t", Target: "m"}},
	}

	_, err := Generate(w, Options{})
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, diagnostic.CodeUnsupportedNodeKind, gerr.Code)
	assert.Equal(t, "m", gerr.NodeID)
	assert.Equal(t, diagnostic.PhaseGeneration, gerr.Diagnostic().Phase)
}

func TestGenerate_CycleOutsideLoop(t *testing.T) {
	w := parse(t, `{"nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "a", "type": "activity", "data": {"activityName": "a"}},
	    {"id": "b", "type": "activity", "data": {"activityName": "b"}}
	  ], "edges": [
	    {"id": "x1", "source": "t", "target": "a"},
	    {"id": "x2", "source": "a", "target": "b"},
	    {"id": "x3", "source": "b", "target": "a"}
	  ]}`)

	_, err := Generate(w, Options{})
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, diagnostic.CodeGenerationInternalError, gerr.Code)
	assert.Equal(t, "b", gerr.NodeID)
}

func TestGenerate_SignalsChildrenAndPhases(t *testing.T) {
	w := parse(t, `{
	  "name": "order approval",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "p", "type": "phase", "data": {"label": "Review"}},
	    {"id": "s", "type": "signal", "data": {"signalName": "approval", "timeout": "1h"}},
	    {"id": "c", "type": "child-workflow", "data": {"workflowId": "billing"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "p"},
	    {"id": "x2", "source": "p", "target": "s"},
	    {"id": "x3", "source": "s", "target": "c"},
	    {"id": "x4", "source": "c", "target": "e"}
	  ]
	}`)

	b, err := Generate(w, Options{})
	require.NoError(t, err)

	assert.Contains(t, b.Workflow, "import { condition, defineQuery, defineSignal, executeChild, proxyActivities, setHandler, workflowInfo } from '@temporalio/workflow';")
	assert.Contains(t, b.Workflow, "export const approvalSignal = defineSignal<[unknown]>('approval');")
	assert.Contains(t, b.Workflow, "const received_2 = await condition(() => signals.has('approval'), '1h');")
	assert.Contains(t, b.Workflow, "results['c'] = await executeChild('billing', {")
	assert.Contains(t, b.Workflow, "currentPhase = 'Review';")
	assert.Contains(t, b.Workflow, "export async function orderApprovalWorkflow(")
	assert.Contains(t, b.Activities, "export {};")
	assert.Contains(t, b.PackageManifest, `"name": "order-approval"`)
}

func TestGenerate_RetryProxies(t *testing.T) {
	w := parse(t, `{
	  "name": "payments",
	  "nodes": [
	    {"id": "t", "type": "trigger"},
	    {"id": "charge", "type": "activity", "data": {"activityName": "charge", "timeout": "30s",
	      "retryPolicy": {"strategy": "exponential-backoff", "maxAttempts": 3, "initialInterval": "1s"}}},
	    {"id": "scope", "type": "retry", "data": {"retryPolicy": {"strategy": "fail-after-x", "maxAttempts": 2}}},
	    {"id": "notify", "type": "activity", "data": {"activityName": "notify"}},
	    {"id": "e", "type": "end"}
	  ],
	  "edges": [
	    {"id": "x1", "source": "t", "target": "charge"},
	    {"id": "x2", "source": "charge", "target": "scope"},
	    {"id": "x3", "source": "scope", "target": "notify"},
	    {"id": "x4", "source": "notify", "target": "e"}
	  ],
	  "settings": {"timeout": "2m", "taskQueue": "payments"}
	}`)

	b, err := Generate(w, Options{})
	require.NoError(t, err)

	assert.Contains(t, b.Workflow, "const acts = proxyActivities<typeof activities>({\n  startToCloseTimeout: '2m',\n});")
	assert.Contains(t, b.Workflow, "const acts2 = proxyActivities<typeof activities>({\n  startToCloseTimeout: '30s',\n  retry: { maximumAttempts: 3, backoffCoefficient: 2, initialInterval: '1s' },\n});")
	assert.Contains(t, b.Workflow, "retry: { maximumAttempts: 2, backoffCoefficient: 1 },")
	assert.Contains(t, b.Workflow, "results['charge'] = await acts2.charge(state);")
	assert.Contains(t, b.Workflow, "results['notify'] = await acts3.notify(state);")
	assert.Contains(t, b.Worker, "taskQueue: 'payments'")
}

func TestTSDuration(t *testing.T) {
	tests := map[string]string{"1m": "'1m'", "500ms": "'500ms'", "1h30m": "5400000", "2d": "'2d'"}
	for in, want := range tests {
		got, err := tsDuration(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := tsDuration("later")
	assert.Error(t, err)
}

func TestBundleWrite(t *testing.T) {
	b, err := Generate(parse(t, linear), Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, b.Write(dir))

	for _, f := range b.Files() {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		require.NoError(t, err)
		assert.Equal(t, f.Content, string(data))
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "none", "basic", "aggressive"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLevel("extreme")
	assert.Error(t, err)
}
