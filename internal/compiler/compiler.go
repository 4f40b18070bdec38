// Package compiler runs the validate, generate and verify stages over a
// workflow graph and assembles the compilation result.
package compiler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sflowg/workflow-compiler/internal/codegen"
	"github.com/sflowg/workflow-compiler/internal/constants"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/verifier"
)

// DefaultVerifyTimeout bounds the verify stage when no timeout is configured.
const DefaultVerifyTimeout = 60 * time.Second

var (
	// ErrInvalidWorkflow is reported to observers when validation finds errors.
	ErrInvalidWorkflow = errors.New("workflow has validation errors")
	// ErrVerificationFailed is reported to observers when static checks fail.
	ErrVerificationFailed = errors.New("generated code failed verification")
	// ErrNoVerifier is recorded when verification is requested but unavailable.
	ErrNoVerifier = errors.New("no verifier configured")
)

// Options select what a compilation does.
type Options struct {
	IncludeComments   bool          `json:"includeComments"`
	StrictMode        bool          `json:"strictMode"`
	OptimizationLevel codegen.Level `json:"optimizationLevel"`
	ValidateOnly      bool          `json:"validateOnly"`
	Verify            bool          `json:"verify"`
	// WorkflowName overrides the graph's name in generated identifiers.
	WorkflowName string `json:"workflowName,omitempty"`
	// DefaultTimeout overrides the compiler-wide activity timeout.
	DefaultTimeout string `json:"defaultTimeout,omitempty"`
}

// Metadata is always present on a result.
type Metadata struct {
	NodeCount         int    `json:"nodeCount"`
	EdgeCount         int    `json:"edgeCount"`
	CompilationTimeMs int64  `json:"compilationTimeMs"`
	Version           string `json:"version"`

	StepCount         int           `json:"stepCount,omitempty"`
	OptimizationLevel codegen.Level `json:"optimizationLevel,omitempty"`
	ContentHash       string        `json:"contentHash,omitempty"`
}

// Result is the outcome of one compilation. Success reflects validation and
// generation only; verification findings never flip it.
type Result struct {
	Success      bool                    `json:"success"`
	Code         *codegen.Bundle         `json:"code,omitempty"`
	Errors       []diagnostic.Diagnostic `json:"errors"`
	Warnings     []diagnostic.Diagnostic `json:"warnings"`
	Metadata     Metadata                `json:"metadata"`
	Verification *verifier.Result        `json:"verification,omitempty"`
	Steps        []codegen.Step          `json:"steps,omitempty"`
}

// Compiler is stateless between calls and safe for concurrent use.
type Compiler struct {
	verifier       verifier.Verifier
	verifyTimeout  time.Duration
	defaultTimeout string
	observer       Observer
	logger         *slog.Logger
	version        string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithVerifier sets the verifier used when verification is requested.
func WithVerifier(v verifier.Verifier) Option {
	return func(c *Compiler) { c.verifier = v }
}

// WithVerifyTimeout bounds the verify stage separately from the caller's
// context deadline.
func WithVerifyTimeout(d time.Duration) Option {
	return func(c *Compiler) { c.verifyTimeout = d }
}

// WithDefaultTimeout sets the activity timeout used when a graph has none.
func WithDefaultTimeout(timeout string) Option {
	return func(c *Compiler) { c.defaultTimeout = timeout }
}

// WithObserver installs pipeline observers.
func WithObserver(obs ...Observer) Option {
	return func(c *Compiler) { c.observer = NewCompositeObserver(obs...) }
}

// WithLogger sets the logger for pipeline internals.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		verifyTimeout: DefaultVerifyTimeout,
		observer:      NoopObserver{},
		logger:        slog.Default(),
		version:       constants.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
