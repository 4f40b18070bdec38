package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sflowg/workflow-compiler/internal/codegen"
	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/constants"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
	"github.com/sflowg/workflow-compiler/internal/graph"
)

type compileRequest struct {
	Workflow json.RawMessage `json:"workflow"`
	Options  requestOptions  `json:"options"`
}

// requestOptions are per-request overrides. Nil fields take the service
// defaults.
type requestOptions struct {
	WorkflowName      string  `json:"workflowName"`
	DefaultTimeout    string  `json:"defaultTimeout"`
	IncludeComments   *bool   `json:"includeComments"`
	StrictMode        *bool   `json:"strictMode"`
	OptimizationLevel *string `json:"optimizationLevel"`
	ValidateOnly      bool    `json:"validateOnly"`
	Verify            bool    `json:"verify"`
}

func (s *Server) resolve(o requestOptions) (compiler.Options, error) {
	level := s.defaults.OptimizationLevel
	if o.OptimizationLevel != nil {
		level = *o.OptimizationLevel
	}
	parsed, err := codegen.ParseLevel(level)
	if err != nil {
		return compiler.Options{}, &graph.MalformedInputError{
			Field: "options.optimizationLevel", Message: err.Error(), Err: err,
		}
	}
	if o.DefaultTimeout != "" {
		if _, err := graph.ParseDuration(o.DefaultTimeout); err != nil {
			return compiler.Options{}, &graph.MalformedInputError{
				Field: "options.defaultTimeout", Message: err.Error(), Err: err,
			}
		}
	}

	opts := compiler.Options{
		IncludeComments:   s.defaults.IncludeComments,
		StrictMode:        s.defaults.StrictMode,
		OptimizationLevel: parsed,
		ValidateOnly:      o.ValidateOnly,
		Verify:            o.Verify,
		WorkflowName:      o.WorkflowName,
		DefaultTimeout:    o.DefaultTimeout,
	}
	if o.IncludeComments != nil {
		opts.IncludeComments = *o.IncludeComments
	}
	if o.StrictMode != nil {
		opts.StrictMode = *o.StrictMode
	}
	return opts, nil
}

// readBody reads the limited request body, answering 413 or 400 itself on
// failure.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortTooLarge(c, tooLarge.Limit)
			return nil, false
		}
		abortMalformed(c, fmt.Errorf("failed to read request body: %w", err))
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		abortMalformed(c, &graph.MalformedInputError{Message: "request body is empty", Err: graph.ErrMalformedInput})
		return nil, false
	}
	return body, true
}

// decodeCompile turns the body into a workflow and resolved options.
func (s *Server) decodeCompile(c *gin.Context) (*graph.Workflow, compiler.Options, bool) {
	body, ok := readBody(c)
	if !ok {
		return nil, compiler.Options{}, false
	}

	var req compileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		abortMalformed(c, &graph.MalformedInputError{Message: "request body: " + err.Error(), Err: err})
		return nil, compiler.Options{}, false
	}
	raw := bytes.TrimSpace(req.Workflow)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		abortMalformed(c, &graph.MalformedInputError{Field: "workflow", Message: "workflow is required", Err: graph.ErrMalformedInput})
		return nil, compiler.Options{}, false
	}

	w, err := graph.Parse(raw)
	if err != nil {
		abortMalformed(c, err)
		return nil, compiler.Options{}, false
	}
	opts, err := s.resolve(req.Options)
	if err != nil {
		abortMalformed(c, err)
		return nil, compiler.Options{}, false
	}
	return w, opts, true
}

// run compiles within the request budget: the configured request timeout,
// extended by the verify timeout when verification will run.
func (s *Server) run(c *gin.Context, w *graph.Workflow, opts compiler.Options) (*compiler.Result, bool) {
	budget := s.cfg.RequestTimeout
	if opts.Verify && !opts.ValidateOnly {
		budget += s.verifyTimeout
	}
	ctx := c.Request.Context()
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	res, err := s.compiler.Compile(ctx, w, opts)
	if err != nil {
		s.abortPipeline(c, err)
		return nil, false
	}
	return res, true
}

func (s *Server) compile(c *gin.Context) {
	w, opts, ok := s.decodeCompile(c)
	if !ok {
		return
	}
	if res, ok := s.run(c, w, opts); ok {
		c.JSON(http.StatusOK, res)
	}
}

type validateResponse struct {
	Valid    bool                    `json:"valid"`
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
	Metadata compiler.Metadata       `json:"metadata"`
}

func (s *Server) validate(c *gin.Context) {
	w, opts, ok := s.decodeCompile(c)
	if !ok {
		return
	}
	opts.ValidateOnly = true
	opts.Verify = false
	if res, ok := s.run(c, w, opts); ok {
		c.JSON(http.StatusOK, validateResponse{
			Valid:    res.Success,
			Errors:   res.Errors,
			Warnings: res.Warnings,
			Metadata: res.Metadata,
		})
	}
}

func (s *Server) generate(c *gin.Context) {
	w, opts, ok := s.decodeCompile(c)
	if !ok {
		return
	}
	opts.ValidateOnly = false
	opts.Verify = false
	if res, ok := s.run(c, w, opts); ok {
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) full(c *gin.Context) {
	w, opts, ok := s.decodeCompile(c)
	if !ok {
		return
	}
	opts.ValidateOnly = false
	opts.Verify = true
	if res, ok := s.run(c, w, opts); ok {
		c.JSON(http.StatusOK, res)
	}
}

// verify checks a previously generated bundle.
func (s *Server) verify(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var bundle codegen.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		abortMalformed(c, &graph.MalformedInputError{Message: "request body: " + err.Error(), Err: err})
		return
	}
	if bundle.Workflow == "" {
		abortMalformed(c, &graph.MalformedInputError{Field: "workflow", Message: "bundle has no workflow source", Err: graph.ErrMalformedInput})
		return
	}

	res, err := s.compiler.Verify(c.Request.Context(), &bundle)
	switch {
	case res == nil:
		s.abortPipeline(c, err)
	case errors.Is(err, compiler.ErrNoVerifier):
		abortError(c, http.StatusServiceUnavailable, CodeVerifierUnavailable, err.Error())
	default:
		c.JSON(http.StatusOK, res)
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		Service:       constants.ServiceName,
		Version:       constants.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":            constants.ServiceName,
		"version":            constants.Version,
		"nodeKinds":          graph.Kinds(),
		"optimizationLevels": []codegen.Level{codegen.LevelNone, codegen.LevelBasic, codegen.LevelAggressive},
	})
}

func (s *Server) schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", workflowSchema().Bytes())
}
