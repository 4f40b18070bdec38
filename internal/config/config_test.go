package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the override variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "TSC_PATH", "ESLINT_PATH", "VERIFICATION_TIMEOUT", "STRICT_MODE",
		"VERIFIER_URL", "OTEL_EXPORTER_OTLP_ENDPOINT", "LOG_LEVEL"} {
		name := name
		if old, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, old) })
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compiler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3020", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3020", cfg.Server.Addr())
	assert.Equal(t, int64(2097152), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Compiler.StrictMode)
	assert.Equal(t, "basic", cfg.Compiler.OptimizationLevel)
	assert.Equal(t, "local", cfg.Verifier.Mode)
	assert.Equal(t, "npx tsc", cfg.Verifier.TSCPath)
	assert.Equal(t, 30*time.Second, cfg.Verifier.Timeout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileWithEnvReferences(t *testing.T) {
	clearEnv(t)
	t.Setenv("WFC_TEST_PORT", "9090")

	path := writeConfig(t, `
server:
  port: ${WFC_TEST_PORT}
  request_timeout: 250ms
compiler:
  optimization_level: aggressive
  include_comments: false
verifier:
  timeout: 5s
  eslint_path: ${WFC_TEST_ESLINT:/opt/node/bin/eslint}
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.RequestTimeout)
	assert.Equal(t, "aggressive", cfg.Compiler.OptimizationLevel)
	assert.False(t, cfg.Compiler.IncludeComments)
	assert.True(t, cfg.Compiler.StrictMode, "unset fields keep their defaults")
	assert.Equal(t, 5*time.Second, cfg.Verifier.Timeout)
	assert.Equal(t, "/opt/node/bin/eslint", cfg.Verifier.ESLintPath)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("TSC_PATH", "/usr/bin/tsc")
	t.Setenv("VERIFICATION_TIMEOUT", "45")
	t.Setenv("STRICT_MODE", "false")
	t.Setenv("VERIFIER_URL", "http://checker:8080")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	path := writeConfig(t, "server:\n  port: \"5000\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "/usr/bin/tsc", cfg.Verifier.TSCPath)
	assert.Equal(t, 45*time.Second, cfg.Verifier.Timeout)
	assert.False(t, cfg.Compiler.StrictMode)
	assert.Equal(t, "remote", cfg.Verifier.Mode)
	assert.Equal(t, "http://checker:8080", cfg.Verifier.URL)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing required env var", "verifier:\n  url: ${WFC_TEST_UNSET_VAR}\n", "WFC_TEST_UNSET_VAR"},
		{"bad optimization level", "compiler:\n  optimization_level: extreme\n", "OptimizationLevel"},
		{"unknown key", "server:\n  prot: 8080\n", "prot"},
		{"remote without url", "verifier:\n  mode: remote\n", "verifier.url"},
		{"telemetry without endpoint", "telemetry:\n  enabled: true\n", "Endpoint"},
		{"bad yaml", "server: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidVerificationTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFICATION_TIMEOUT", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "VERIFICATION_TIMEOUT")
}
