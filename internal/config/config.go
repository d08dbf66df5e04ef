// Package config provides unified configuration loading for hivesight.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/oracle"
)

// DirName is the per-user data directory under $HOME.
const DirName = ".hivesight"

// HivesightConfig contains all hivesight configuration settings.
type HivesightConfig struct {
	// Oracle selects and configures the language model backend.
	Oracle OracleConfig `json:"oracle" yaml:"oracle"`

	// Dispatch controls concurrency, retries and pacing of oracle calls.
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`

	// Personas locates the persona dataset.
	Personas PersonasConfig `json:"personas" yaml:"personas"`

	// History controls recording of finished runs.
	History HistoryConfig `json:"history" yaml:"history"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Server configures the HTTP API.
	Server ServerConfig `json:"server" yaml:"server"`
}

// OracleConfig configures the oracle backend.
type OracleConfig struct {
	// Provider identifies the backend: "openai", "ollama", "anthropic", "gemini" or "mock".
	Provider string `json:"provider" yaml:"provider" env:"HIVESIGHT_PROVIDER"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama or mock.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"HIVESIGHT_API_KEY"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	// Defaults: ollama=http://localhost:11434/v1, openai=https://api.openai.com/v1
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"HIVESIGHT_BASE_URL"`

	// Model is the default model identifier.
	Model string `json:"model" yaml:"model" env:"HIVESIGHT_MODEL"`

	// Models maps short aliases (e.g. "fast") to provider model identifiers.
	Models map[string]string `json:"models,omitempty" yaml:"models,omitempty"`

	// Temperature is the sampling temperature, 0 to 2.
	Temperature float64 `json:"temperature" yaml:"temperature" env:"HIVESIGHT_TEMPERATURE"`

	// MaxTokens caps the length of each answer.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" env:"HIVESIGHT_MAX_TOKENS"`

	// Timeout is the maximum duration to wait for a single answer.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"HIVESIGHT_TIMEOUT"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c OracleConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
// It returns a representation with the API key redacted.
func (c OracleConfig) String() string {
	return fmt.Sprintf("OracleConfig{Provider:%s, APIKey:%s, Model:%s}",
		c.Provider, c.RedactedAPIKey(), c.Model)
}

// ResolveModel maps an alias to its model identifier. An empty name yields
// the default model; unknown names pass through unchanged.
func (c OracleConfig) ResolveModel(name string) string {
	if name == "" {
		return c.Model
	}
	if m, ok := c.Models[name]; ok {
		return m
	}
	return name
}

// ClientConfig converts the section into the oracle factory's input.
func (c OracleConfig) ClientConfig() oracle.ClientConfig {
	return oracle.ClientConfig{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		Timeout:  c.Timeout,
	}
}

// Params returns per-call generation settings for model (an alias or identifier).
func (c OracleConfig) Params(model string) oracle.Params {
	p := oracle.DefaultParams(c.ResolveModel(model))
	p.Temperature = c.Temperature
	if c.MaxTokens > 0 {
		p.MaxTokens = c.MaxTokens
	}
	return p
}

// DispatchConfig configures the dispatch engine.
type DispatchConfig struct {
	// Concurrency is the number of oracle calls in flight at once.
	Concurrency int `json:"concurrency" yaml:"concurrency" env:"HIVESIGHT_CONCURRENCY"`

	// MaxAttempts is the total number of calls one prompt may use under rate limiting.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" env:"HIVESIGHT_MAX_ATTEMPTS"`

	// InitialDelay is the first rate-limit backoff.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay" env:"HIVESIGHT_INITIAL_DELAY"`

	// MaxDelay caps every backoff.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" env:"HIVESIGHT_MAX_DELAY"`

	// TransientDelay is the pause before retrying a non-rate-limit failure.
	TransientDelay time.Duration `json:"transient_delay" yaml:"transient_delay" env:"HIVESIGHT_TRANSIENT_DELAY"`

	// RequestsPerSecond paces oracle calls client-side; 0 disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" env:"HIVESIGHT_REQUESTS_PER_SECOND"`

	// Burst is the pacing bucket size.
	Burst int `json:"burst" yaml:"burst" env:"HIVESIGHT_BURST"`
}

// PersonasConfig locates the persona dataset.
type PersonasConfig struct {
	// Path is the CSV file of personas.
	Path string `json:"path" yaml:"path" env:"HIVESIGHT_PERSONAS"`
}

// HistoryConfig controls run history.
type HistoryConfig struct {
	// Enabled records every finished run.
	Enabled bool `json:"enabled" yaml:"enabled" env:"HIVESIGHT_HISTORY"`

	// Path is the SQLite file. Defaults to ~/.hivesight/history.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty" env:"HIVESIGHT_HISTORY_PATH"`
}

// LoggingConfig configures hivesight's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to ~/.hivesight/events.jsonl.
	// "trace" additionally includes full prompts and raw answers.
	Level string `json:"level" yaml:"level" env:"HIVESIGHT_LOG_LEVEL"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint. Empty disables export.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" env:"HIVESIGHT_OTLP_ENDPOINT"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr" yaml:"addr" env:"HIVESIGHT_ADDR"`
}

// Default returns a HivesightConfig with sensible defaults.
func Default() *HivesightConfig {
	return &HivesightConfig{
		Oracle: OracleConfig{
			Provider:    oracle.ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: constants.DefaultTemperature,
			MaxTokens:   constants.DefaultMaxTokens,
			Timeout:     constants.DefaultOracleTimeout,
		},
		Dispatch: DispatchConfig{
			Concurrency:    constants.DefaultConcurrency,
			MaxAttempts:    constants.DefaultMaxAttempts,
			InitialDelay:   constants.DefaultInitialDelay,
			MaxDelay:       constants.DefaultMaxDelay,
			TransientDelay: constants.DefaultTransientDelay,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// DataDir returns ~/.hivesight, or "" when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DirName)
}

// HistoryPath returns the configured history database, defaulting into DataDir.
func (c *HivesightConfig) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.hivesight/config.yaml -> environment variables
func Load() (*HivesightConfig, error) {
	config := Default()

	// Try to load from default config file
	if dir := DataDir(); dir != "" {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadPath loads an explicit config file, then applies environment overrides.
func LoadPath(path string) (*HivesightConfig, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*HivesightConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in API key
	config.Oracle.APIKey = expandEnvVars(config.Oracle.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *HivesightConfig) Validate() error {
	validProviders := map[string]bool{
		oracle.ProviderOpenAI:    true,
		oracle.ProviderOllama:    true,
		oracle.ProviderAnthropic: true,
		oracle.ProviderGemini:    true,
		oracle.ProviderMock:      true,
	}
	if !validProviders[c.Oracle.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: openai, ollama, anthropic, gemini, mock)", c.Oracle.Provider)
	}

	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Oracle.Temperature)
	}

	if c.Oracle.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", c.Oracle.MaxTokens)
	}

	if c.Oracle.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Oracle.Timeout)
	}

	d := c.Dispatch
	if d.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", d.Concurrency)
	}
	if d.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", d.MaxAttempts)
	}
	if d.InitialDelay < 0 || d.MaxDelay < 0 || d.TransientDelay < 0 {
		return fmt.Errorf("dispatch delays must be non-negative")
	}
	if d.MaxDelay < d.InitialDelay {
		return fmt.Errorf("max_delay (%v) must not be less than initial_delay (%v)", d.MaxDelay, d.InitialDelay)
	}
	if d.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %g", d.RequestsPerSecond)
	}
	if d.Burst < 0 {
		return fmt.Errorf("burst must be non-negative, got %d", d.Burst)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *HivesightConfig) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	// Provider-native key variables apply only to their own provider.
	if config.Oracle.APIKey == "" {
		switch config.Oracle.Provider {
		case oracle.ProviderOpenAI:
			config.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		case oracle.ProviderAnthropic:
			config.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case oracle.ProviderGemini:
			config.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.Oracle.Provider == oracle.ProviderOllama {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.Oracle.BaseURL = ollamaURL(v)
		} else if config.Oracle.BaseURL == "" {
			config.Oracle.BaseURL = "http://localhost:11434/v1"
		}
	}

	return nil
}

// ollamaURL accepts OLLAMA_HOST in its native forms ("host:port" or a URL)
// and returns the OpenAI-compatible endpoint.
func ollamaURL(host string) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasSuffix(host, "/v1") {
		host += "/v1"
	}
	return host
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
