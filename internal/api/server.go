// Package api exposes the compiler as an HTTP service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/config"
)

// Options wires a Server.
type Options struct {
	Server   config.ServerConfig
	Defaults config.CompilerConfig
	// VerifyTimeout extends the request budget when verification is requested.
	VerifyTimeout time.Duration
	Compiler      *compiler.Compiler
	Metrics       *Metrics
	Logger        *slog.Logger
}

// Server is the HTTP front end of the compiler.
type Server struct {
	cfg           config.ServerConfig
	defaults      config.CompilerConfig
	verifyTimeout time.Duration
	compiler      *compiler.Compiler
	metrics       *Metrics
	logger        *slog.Logger
	engine        *gin.Engine
	started       time.Time
}

// NewServer builds the router. A nil Metrics gets a private registry and a
// nil Logger falls back to slog.Default.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Compiler == nil {
		opts.Compiler = compiler.New(compiler.WithLogger(opts.Logger))
	}
	if opts.Server.Mode != "" {
		gin.SetMode(opts.Server.Mode)
	}

	s := &Server{
		cfg:           opts.Server,
		defaults:      opts.Defaults,
		verifyTimeout: opts.VerifyTimeout,
		compiler:      opts.Compiler,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		engine:        gin.New(),
		started:       time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger), cors(), s.metrics.middleware())

	r.GET("/health", s.health)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/version", s.version)
	v1.GET("/schema", s.schema)

	compile := v1.Group("/compile", limitBody(s.cfg.MaxBodyBytes))
	compile.POST("", s.compile)
	compile.POST("/validate", s.validate)
	compile.POST("/generate", s.generate)
	compile.POST("/verify", s.verify)
	compile.POST("/full", s.full)
}

// Handler returns the router for use with an external http.Server or tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then drains in-flight requests within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
