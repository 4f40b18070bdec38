package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sflowg/workflow-compiler/internal/codegen"
	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/config"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
	"github.com/sflowg/workflow-compiler/internal/telemetry"
)

var (
	outDir       string
	level        string
	workflowName string
	timeout      string
	noComments   bool
	strict       bool
	verify       bool
	jsonOutput   bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <workflow.json|workflow.yaml|->",
	Short: "Compile a workflow graph into a Temporal TypeScript project",
	Long: `Compile validates a workflow definition and generates the workflow,
activities, worker, package.json and tsconfig.json files.

With --out the files are written to that directory; otherwise the full
compilation result is printed as JSON.

Example:
  wfc compile order.json --out ./order-worker
  wfc compile order.yaml --level aggressive --verify
  cat order.json | wfc compile - --strict=false
`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.json|workflow.yaml|->",
	Short: "Validate a workflow graph without generating code",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	compileCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the generated project into")
	compileCmd.Flags().StringVar(&level, "level", "", "Optimization level (none, basic, aggressive)")
	compileCmd.Flags().StringVar(&workflowName, "name", "", "Override the generated workflow name")
	compileCmd.Flags().StringVar(&timeout, "timeout", "", "Default activity timeout (e.g. 30s, 5m)")
	compileCmd.Flags().BoolVar(&noComments, "no-comments", false, "Omit comments from generated code")
	compileCmd.Flags().BoolVar(&strict, "strict", true, "Reject constructs that would compile to placeholders")
	compileCmd.Flags().BoolVar(&verify, "verify", false, "Type-check and lint the generated project")
	compileCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the compilation result as JSON even with --out")

	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation result as JSON")
}

// parseWorkflow picks the decoder from the file extension. Stdin is JSON.
func parseWorkflow(path string, data []byte) (*graph.Workflow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return graph.ParseYAML(data)
	default:
		return graph.Parse(data)
	}
}

func compileOptions(cmd *cobra.Command, cfg config.CompilerConfig) (compiler.Options, error) {
	opts := compiler.Options{
		IncludeComments: cfg.IncludeComments,
		StrictMode:      cfg.StrictMode,
		Verify:          verify,
		WorkflowName:    workflowName,
		DefaultTimeout:  timeout,
	}
	lvl := cfg.OptimizationLevel
	if level != "" {
		lvl = level
	}
	parsed, err := codegen.ParseLevel(lvl)
	if err != nil {
		return opts, err
	}
	opts.OptimizationLevel = parsed
	if noComments {
		opts.IncludeComments = false
	}
	if cmd.Flags().Changed("strict") {
		opts.StrictMode = strict
	}
	return opts, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	w, err := parseWorkflow(args[0], data)
	if err != nil {
		return err
	}
	opts, err := compileOptions(cmd, cfg.Compiler)
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log, nil)
	res, err := newCompiler(cfg, logger).Compile(cmd.Context(), w, opts)
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if outDir == "" || jsonOutput {
		if err := printJSON(stdout, res); err != nil {
			return err
		}
	}
	printDiagnostics(stderr, res.Errors, res.Warnings)
	if !res.Success {
		return fmt.Errorf("compilation failed with %d error(s)", len(res.Errors))
	}

	if outDir != "" {
		if err := res.Code.Write(outDir); err != nil {
			return fmt.Errorf("failed to write generated project: %w", err)
		}
		fmt.Fprintf(stderr, "✓ Generated %d files in %s (%d steps, %s)\n",
			len(res.Code.Files()), outDir, res.Metadata.StepCount, res.Metadata.OptimizationLevel)
	}
	if v := res.Verification; v != nil {
		printVerification(stderr, v.Success, v.Error, len(v.TypeErrors), len(v.LintIssues))
		if !v.Success {
			return fmt.Errorf("verification failed")
		}
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	w, err := parseWorkflow(args[0], data)
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log, nil)
	res, err := compiler.New(compiler.WithLogger(logger)).Compile(cmd.Context(), w, compiler.Options{ValidateOnly: true})
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), map[string]any{
			"valid":    res.Success,
			"errors":   res.Errors,
			"warnings": res.Warnings,
		}); err != nil {
			return err
		}
	}
	printDiagnostics(cmd.ErrOrStderr(), res.Errors, res.Warnings)
	if !res.Success {
		return fmt.Errorf("workflow is invalid: %d error(s)", len(res.Errors))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ %s is valid (%d nodes, %d edges)\n", args[0], res.Metadata.NodeCount, res.Metadata.EdgeCount)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func printDiagnostics(w io.Writer, errs, warnings []diagnostic.Diagnostic) {
	for _, d := range errs {
		fmt.Fprintf(w, "✗ %s\n", d.Error())
	}
	for _, d := range warnings {
		fmt.Fprintf(w, "! %s\n", d.Error())
	}
}

func printVerification(w io.Writer, ok bool, failure string, typeErrors, lintIssues int) {
	switch {
	case failure != "":
		fmt.Fprintf(w, "✗ Verification could not run: %s\n", failure)
	case ok:
		fmt.Fprintf(w, "✓ Verification passed (%d lint warnings)\n", lintIssues)
	default:
		fmt.Fprintf(w, "✗ Verification failed: %d type errors, %d lint issues\n", typeErrors, lintIssues)
	}
}
