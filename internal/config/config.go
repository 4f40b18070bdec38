// Package config loads the compiler service configuration: struct-tag
// defaults, then an optional YAML file with ${VAR:default} references, then
// environment overrides, then validation.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Verifier  VerifierConfig  `yaml:"verifier"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            string        `yaml:"port" default:"3020" validate:"required,numeric"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s" validate:"gte=1s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s" validate:"gte=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	// RequestTimeout bounds validation and generation of one request.
	RequestTimeout time.Duration `yaml:"request_timeout" default:"10s" validate:"gte=10ms"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" default:"2097152" validate:"gte=1024"`
	Mode           string        `yaml:"mode" default:"release" validate:"oneof=debug release test"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// CompilerConfig holds defaults applied to requests that leave options unset.
type CompilerConfig struct {
	StrictMode        bool   `yaml:"strict_mode" default:"true"`
	IncludeComments   bool   `yaml:"include_comments" default:"true"`
	OptimizationLevel string `yaml:"optimization_level" default:"basic" validate:"oneof=none basic aggressive"`
	DefaultTimeout    string `yaml:"default_timeout" default:"1m" validate:"required"`
}

type VerifierConfig struct {
	Mode        string        `yaml:"mode" default:"local" validate:"oneof=local remote disabled"`
	Timeout     time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	TSCPath     string        `yaml:"tsc_path" default:"npx tsc" validate:"required"`
	ESLintPath  string        `yaml:"eslint_path" default:"npx eslint" validate:"required"`
	NPMPath     string        `yaml:"npm_path" default:"npm" validate:"required"`
	Install     bool          `yaml:"install" default:"true"`
	Lint        bool          `yaml:"lint" default:"true"`
	WorkDir     string        `yaml:"work_dir"`
	KeepWorkDir bool          `yaml:"keep_work_dir"`
	URL         string        `yaml:"url" validate:"omitempty,url_format"`
	MaxRetries  int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
	RetryWaitMS int           `yaml:"retry_wait_ms" default:"200" validate:"gte=0,lte=10000"`
}

type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Endpoint       string        `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure       bool          `yaml:"insecure" default:"true"`
	ServiceName    string        `yaml:"service_name" default:"workflow-compiler" validate:"required"`
	MetricInterval time.Duration `yaml:"metric_interval" default:"30s" validate:"gte=1s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// SlogLevel converts the configured level name.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// url_format validates URL structure
	validate.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply default values: %w", err)
	}

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := merge(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config values from %q: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	expanded, err := expandEnv(raw, "")
	if err != nil {
		return nil, fmt.Errorf("failed to expand config file %q: %w", path, err)
	}
	out, _ := expanded.(map[string]any)
	return out, nil
}

// merge decodes raw values over cfg. Fields absent from raw keep their
// defaults. Strings are converted to the field types, so values that came
// from the environment decode into ints, bools and durations.
func merge(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(raw)
}

// applyEnv applies the service's well-known environment variables.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("TSC_PATH"); ok {
		cfg.Verifier.TSCPath = v
	}
	if v, ok := os.LookupEnv("ESLINT_PATH"); ok {
		cfg.Verifier.ESLintPath = v
	}
	if v, ok := os.LookupEnv("VERIFICATION_TIMEOUT"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid VERIFICATION_TIMEOUT %q: %w", v, err)
		}
		cfg.Verifier.Timeout = d
	}
	if v, ok := os.LookupEnv("STRICT_MODE"); ok {
		cfg.Compiler.StrictMode = v == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("VERIFIER_URL"); ok && v != "" {
		cfg.Verifier.URL = v
		cfg.Verifier.Mode = "remote"
	}
	if v, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok && v != "" {
		cfg.Telemetry.Endpoint = v
		cfg.Telemetry.Enabled = true
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	return nil
}

// parseSeconds accepts a bare number of seconds or a Go duration.
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Validate checks a configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"field '%s' failed validation (rule: %s, value: %v)",
					fieldErr.Namespace(),
					fieldErr.Tag(),
					fieldErr.Value(),
				))
			}
			return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errMessages, "\n  - "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Verifier.Mode == "remote" && cfg.Verifier.URL == "" {
		return fmt.Errorf("config validation failed: verifier.url is required when verifier.mode is remote")
	}
	return nil
}
