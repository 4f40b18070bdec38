package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/sflowg/workflow-compiler/internal/codegen"
)

// Toolchain verifies bundles with locally installed Node tooling. Each call
// gets its own workspace, so a Toolchain is safe for concurrent use.
type Toolchain struct {
	TSCPath    string
	ESLintPath string
	NPMPath    string
	// Install runs `npm install` before checking. Without it tsc can only
	// resolve the Temporal SDK if a node_modules is otherwise available.
	Install bool
	// Lint enables the eslint pass.
	Lint bool
	// WorkDir is the parent of per-call workspaces; empty means os.TempDir.
	WorkDir string
	// Keep leaves workspaces on disk for inspection.
	Keep   bool
	Logger *slog.Logger
}

func (t *Toolchain) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func orDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

// Verify writes the bundle to a workspace and runs the configured tools.
func (t *Toolchain) Verify(ctx context.Context, b *codegen.Bundle) (*Result, error) {
	start := time.Now()
	log := t.logger()

	ws, err := createWorkspace(t.WorkDir)
	if err != nil {
		return nil, err
	}
	if !t.Keep {
		defer func() {
			if err := ws.cleanup(); err != nil {
				log.Warn("Verifier: workspace cleanup failed", "workspace", ws.Path, "error", err)
			}
		}()
	}
	if err := ws.populate(b); err != nil {
		return nil, err
	}

	result := &Result{}
	defer func() { result.DurationMs = time.Since(start).Milliseconds() }()

	if t.Install && !ws.hasDependencies() {
		out, err := t.run(ctx, ws.Path, orDefault(t.NPMPath, "npm"), "install", "--no-audit", "--no-fund", "--silent")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			result.Error = fmt.Sprintf("npm install failed: %v\n%s", err, tail(out, 20))
			result.settle()
			return result, nil
		}
	}

	out, err := t.run(ctx, ws.Path, orDefault(t.TSCPath, "tsc"), "--noEmit", "--pretty", "false", "-p", "tsconfig.json")
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result.TypeErrors = parseTSC(out)
	if err != nil && len(result.TypeErrors) == 0 {
		result.Error = fmt.Sprintf("tsc failed: %v\n%s", err, tail(out, 20))
	}

	if t.Lint && result.Error == "" {
		out, err := t.run(ctx, ws.Path, orDefault(t.ESLintPath, "eslint"), "--format", "json", "--no-eslintrc", "-c", eslintConfigFile, "src")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		issues, perr := parseESLint([]byte(out), ws.Path)
		switch {
		case perr == nil:
			result.LintIssues = issues
		case err != nil:
			result.Error = fmt.Sprintf("eslint failed: %v\n%s", err, tail(out, 20))
		default:
			result.Error = perr.Error()
		}
	}

	result.settle()
	log.Debug("Verifier: bundle checked",
		"workspace", ws.ID,
		"type_errors", len(result.TypeErrors),
		"lint_issues", len(result.LintIssues),
		"success", result.Success)
	return result, nil
}

// run executes a tool in dir. name may carry leading arguments, as in
// "npx tsc". Output is returned even when the tool exits non-zero, since tsc
// and eslint report findings that way.
func (t *Toolchain) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty tool command")
	}
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], args...)...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := stdout.String()
	if stdout.Len() == 0 {
		out = stderr.String()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, fmt.Errorf("%s exited with status %d", name, exitErr.ExitCode())
	}
	if err != nil {
		return out, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return out, nil
}
