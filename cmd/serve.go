package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sflowg/workflow-compiler/internal/api"
	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/config"
	"github.com/sflowg/workflow-compiler/internal/constants"
	"github.com/sflowg/workflow-compiler/internal/telemetry"
	"github.com/sflowg/workflow-compiler/internal/verifier"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compiler HTTP service",
	Long: `Serve exposes validation, generation and verification over HTTP.

Example:
  wfc serve
  wfc serve --config compiler.yaml --port 3020
  PORT=4000 VERIFIER_URL=http://checker:8080 wfc serve
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (overrides config and PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, constants.Version)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry shutdown failed: %v\n", err)
		}
	}()

	logger := telemetry.NewLogger(os.Stdout, cfg.Log, providers.Logs)
	slog.SetDefault(logger)

	tracing, err := telemetry.NewObserver(providers.Tracer, providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create telemetry observer: %w", err)
	}
	metrics := api.NewMetrics()

	comp := newCompiler(cfg, logger, compiler.NewLoggingObserver(logger), tracing, metrics)
	srv := api.NewServer(api.Options{
		Server:        cfg.Server,
		Defaults:      cfg.Compiler,
		VerifyTimeout: cfg.Verifier.Timeout,
		Compiler:      comp,
		Metrics:       metrics,
		Logger:        logger,
	})

	logger.Info("Starting workflow compiler",
		"version", constants.Version,
		"addr", cfg.Server.Addr(),
		"verifier", cfg.Verifier.Mode,
		"strict_mode", cfg.Compiler.StrictMode,
		"telemetry", cfg.Telemetry.Enabled)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Workflow compiler stopped")
	return nil
}

// newCompiler builds a Compiler from the configuration.
func newCompiler(cfg *config.Config, logger *slog.Logger, observers ...compiler.Observer) *compiler.Compiler {
	opts := []compiler.Option{
		compiler.WithVerifyTimeout(cfg.Verifier.Timeout),
		compiler.WithDefaultTimeout(cfg.Compiler.DefaultTimeout),
		compiler.WithLogger(logger),
	}
	if v := newVerifier(cfg.Verifier, logger); v != nil {
		opts = append(opts, compiler.WithVerifier(v))
	}
	if len(observers) > 0 {
		opts = append(opts, compiler.WithObserver(observers...))
	}
	return compiler.New(opts...)
}

// newVerifier selects the verifier for the configured mode. It returns nil
// when verification is disabled.
func newVerifier(cfg config.VerifierConfig, logger *slog.Logger) verifier.Verifier {
	switch cfg.Mode {
	case "remote":
		return verifier.NewRemote(verifier.RemoteConfig{
			URL:         cfg.URL,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryWaitMS: cfg.RetryWaitMS,
			Debug:       logger.Enabled(context.Background(), slog.LevelDebug),
		})
	case "local":
		return &verifier.Toolchain{
			TSCPath:    cfg.TSCPath,
			ESLintPath: cfg.ESLintPath,
			NPMPath:    cfg.NPMPath,
			Install:    cfg.Install,
			Lint:       cfg.Lint,
			WorkDir:    cfg.WorkDir,
			Keep:       cfg.KeepWorkDir,
			Logger:     logger,
		}
	default:
		return nil
	}
}
