package verifier

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

const eslintConfigFile = ".eslintrc.json"

// tscLine matches "src/workflow.ts(12,5): error TS2304: Cannot find name 'x'."
var tscLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): error (TS\d+): (.+)$`)

// parseTSC extracts diagnostics from tsc's default (non-pretty) output.
// Continuation lines of multi-line messages are appended to the message.
func parseTSC(output string) []TypeError {
	var errs []TypeError
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		m := tscLine.FindStringSubmatch(line)
		if m == nil {
			if len(errs) > 0 && strings.HasPrefix(line, " ") && strings.TrimSpace(line) != "" {
				last := &errs[len(errs)-1]
				last.Message += " " + strings.TrimSpace(line)
			}
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		errs = append(errs, TypeError{
			File:    filepath.ToSlash(m[1]),
			Line:    lineNo,
			Column:  col,
			Code:    m[4],
			Message: m[5],
		})
	}
	return errs
}

// parseESLint reads an `eslint --format json` report. File paths are made
// relative to root.
func parseESLint(report []byte, root string) ([]LintIssue, error) {
	parsed, err := gabs.ParseJSON(report)
	if err != nil {
		return nil, fmt.Errorf("failed to parse eslint report: %w", err)
	}

	var issues []LintIssue
	for _, file := range parsed.Children() {
		path, _ := file.Path("filePath").Data().(string)
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
		path = filepath.ToSlash(path)

		for _, msg := range file.Path("messages").Children() {
			issue := LintIssue{
				File:     path,
				Severity: SeverityWarning,
			}
			issue.Rule, _ = msg.Path("ruleId").Data().(string)
			issue.Message, _ = msg.Path("message").Data().(string)
			if v, ok := msg.Path("line").Data().(float64); ok {
				issue.Line = int(v)
			}
			if v, ok := msg.Path("column").Data().(float64); ok {
				issue.Column = int(v)
			}
			if v, ok := msg.Path("severity").Data().(float64); ok && v >= 2 {
				issue.Severity = SeverityError
			}
			issues = append(issues, issue)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})
	return issues, nil
}

// eslintConfig is the lint setup written next to each verified bundle.
func eslintConfig() []byte {
	cfg := gabs.New()
	cfg.Set(true, "root")
	cfg.Set("@typescript-eslint/parser", "parser")
	cfg.Set("./tsconfig.json", "parserOptions", "project")
	cfg.Set(true, "env", "node")
	cfg.Set(true, "env", "es2020")
	cfg.ArrayAppend("@typescript-eslint", "plugins")
	cfg.ArrayAppend("eslint:recommended", "extends")
	cfg.ArrayAppend("plugin:@typescript-eslint/recommended", "extends")
	cfg.Set("off", "rules", "@typescript-eslint/no-unused-vars")
	cfg.Set("warn", "rules", "@typescript-eslint/no-explicit-any")
	return cfg.BytesIndent("", "  ")
}

// tail returns the last n lines of s for error messages.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
