package verifier

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTSC(t *testing.T) {
	output := `src/workflow.ts(12,5): error TS2304: Cannot find name 'missing'.
src/activities.ts(3,10): error TS2322: Type 'string' is not assignable to type 'number'.
  The expected type comes from property 'count'.

Found 2 errors in 2 files.
`
	errs := parseTSC(output)
	require.Len(t, errs, 2)
	assert.Equal(t, TypeError{
		File:    "src/workflow.ts",
		Line:    12,
		Column:  5,
		Code:    "TS2304",
		Message: "Cannot find name 'missing'.",
	}, errs[0])
	assert.Equal(t, "TS2322", errs[1].Code)
	assert.Equal(t, "Type 'string' is not assignable to type 'number'. The expected type comes from property 'count'.", errs[1].Message)

	assert.Empty(t, parseTSC(""))
	assert.Empty(t, parseTSC("error TS5058: The specified path does not exist."))
}

func TestParseESLint(t *testing.T) {
	root := filepath.FromSlash("/tmp/wfc-verify-1234")
	report := `[
	  {"filePath": "/tmp/wfc-verify-1234/src/workflow.ts", "messages": [
	    {"ruleId": "no-constant-condition", "severity": 2, "message": "Unexpected constant condition.", "line": 20, "column": 7},
	    {"ruleId": "@typescript-eslint/no-explicit-any", "severity": 1, "message": "Unexpected any.", "line": 4, "column": 3}
	  ]},
	  {"filePath": "/tmp/wfc-verify-1234/src/worker.ts", "messages": []},
	  {"filePath": "/tmp/wfc-verify-1234/src/activities.ts", "messages": [
	    {"ruleId": null, "fatal": true, "severity": 2, "message": "Parsing error: ';' expected.", "line": 1, "column": 1}
	  ]}
	]`

	issues, err := parseESLint([]byte(report), root)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	assert.Equal(t, "src/activities.ts", issues[0].File)
	assert.Equal(t, "", issues[0].Rule)
	assert.Equal(t, SeverityError, issues[0].Severity)

	assert.Equal(t, "src/workflow.ts", issues[1].File)
	assert.Equal(t, 4, issues[1].Line)
	assert.Equal(t, SeverityWarning, issues[1].Severity)
	assert.Equal(t, "@typescript-eslint/no-explicit-any", issues[1].Rule)

	assert.Equal(t, 20, issues[2].Line)
	assert.Equal(t, SeverityError, issues[2].Severity)

	_, err = parseESLint([]byte("Oops! Something went wrong!"), root)
	assert.Error(t, err)
}

func TestESLintConfig(t *testing.T) {
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(eslintConfig(), &cfg))
	assert.Equal(t, "@typescript-eslint/parser", cfg["parser"])
	assert.Equal(t, []any{"@typescript-eslint"}, cfg["plugins"])
	assert.Len(t, cfg["extends"], 2)
}

func TestResultSettle(t *testing.T) {
	r := &Result{LintIssues: []LintIssue{{Severity: SeverityWarning}}}
	r.settle()
	assert.True(t, r.Success)
	assert.NotNil(t, r.TypeErrors)

	r = &Result{LintIssues: []LintIssue{{Severity: SeverityError}}}
	r.settle()
	assert.False(t, r.Success)

	r = &Result{Error: "tsc not found"}
	r.settle()
	assert.False(t, r.Success)
}
