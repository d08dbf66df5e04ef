package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	if config.Oracle.Provider != "openai" {
		t.Errorf("expected Provider 'openai', got '%s'", config.Oracle.Provider)
	}
	if config.Oracle.Temperature != 1.0 {
		t.Errorf("expected Temperature 1.0, got %g", config.Oracle.Temperature)
	}
	if config.Oracle.MaxTokens != 5 {
		t.Errorf("expected MaxTokens 5, got %d", config.Oracle.MaxTokens)
	}
	if config.Dispatch.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts 5, got %d", config.Dispatch.MaxAttempts)
	}
	if config.Dispatch.InitialDelay != time.Second || config.Dispatch.MaxDelay != time.Minute {
		t.Errorf("unexpected backoff bounds %v..%v", config.Dispatch.InitialDelay, config.Dispatch.MaxDelay)
	}
	if !config.History.Enabled {
		t.Error("expected History.Enabled to be true by default")
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
oracle:
  provider: anthropic
  api_key: test-key
  model: claude-3-opus
  models:
    fast: claude-3-haiku
  temperature: 0.7
  timeout: 10s

dispatch:
  concurrency: 4
  max_delay: 30s
  requests_per_second: 2.5
  burst: 3

personas:
  path: /data/personas.csv

history:
  enabled: false
`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Oracle.Provider != "anthropic" {
		t.Errorf("expected Provider 'anthropic', got '%s'", config.Oracle.Provider)
	}
	if config.Oracle.APIKey != "test-key" {
		t.Errorf("expected APIKey 'test-key', got '%s'", config.Oracle.APIKey)
	}
	if config.Oracle.Timeout != 10*time.Second {
		t.Errorf("expected Timeout 10s, got %v", config.Oracle.Timeout)
	}
	if config.Oracle.Temperature != 0.7 {
		t.Errorf("expected Temperature 0.7, got %g", config.Oracle.Temperature)
	}
	if config.Dispatch.Concurrency != 4 || config.Dispatch.MaxDelay != 30*time.Second {
		t.Errorf("unexpected dispatch section %+v", config.Dispatch)
	}
	// Unset keys keep their defaults
	if config.Dispatch.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts default 5, got %d", config.Dispatch.MaxAttempts)
	}
	if config.Dispatch.RequestsPerSecond != 2.5 || config.Dispatch.Burst != 3 {
		t.Errorf("unexpected pacing %g/%d", config.Dispatch.RequestsPerSecond, config.Dispatch.Burst)
	}
	if config.Personas.Path != "/data/personas.csv" {
		t.Errorf("expected personas path, got '%s'", config.Personas.Path)
	}
	if config.History.Enabled {
		t.Error("expected History.Enabled to be false")
	}
	if got := config.Oracle.ResolveModel("fast"); got != "claude-3-haiku" {
		t.Errorf("ResolveModel(fast) = %q", got)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	path := writeConfig(t, `
oracle:
  provider: anthropic
  api_key: ${TEST_API_KEY}
`)
	t.Setenv("TEST_API_KEY", "expanded-key-value")

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Oracle.APIKey != "expanded-key-value" {
		t.Errorf("expected APIKey 'expanded-key-value', got '%s'", config.Oracle.APIKey)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HIVESIGHT_PROVIDER", "ollama")
	t.Setenv("HIVESIGHT_MODEL", "llama3.2")
	t.Setenv("HIVESIGHT_CONCURRENCY", "3")
	t.Setenv("HIVESIGHT_MAX_DELAY", "90s")
	t.Setenv("HIVESIGHT_HISTORY", "false")
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}

	if config.Oracle.Provider != "ollama" {
		t.Errorf("expected Provider 'ollama', got '%s'", config.Oracle.Provider)
	}
	if config.Oracle.Model != "llama3.2" {
		t.Errorf("expected Model 'llama3.2', got '%s'", config.Oracle.Model)
	}
	if config.Dispatch.Concurrency != 3 {
		t.Errorf("expected Concurrency 3, got %d", config.Dispatch.Concurrency)
	}
	if config.Dispatch.MaxDelay != 90*time.Second {
		t.Errorf("expected MaxDelay 90s, got %v", config.Dispatch.MaxDelay)
	}
	if config.History.Enabled {
		t.Error("expected History.Enabled false")
	}
	if config.Oracle.BaseURL != "http://gpu-box:11434/v1" {
		t.Errorf("expected OLLAMA_HOST endpoint, got '%s'", config.Oracle.BaseURL)
	}
}

func TestEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("HIVESIGHT_CONCURRENCY", "many")

	if err := applyEnvOverrides(Default()); err == nil {
		t.Error("expected error for unparsable HIVESIGHT_CONCURRENCY")
	}
}

func TestEnvOverrides_ProviderKeys(t *testing.T) {
	tests := []struct {
		provider string
		envVar   string
	}{
		{"openai", "OPENAI_API_KEY"},
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"gemini", "GEMINI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("HIVESIGHT_API_KEY", "")
			t.Setenv(tt.envVar, "key-from-"+tt.envVar)

			config := Default()
			config.Oracle.Provider = tt.provider
			if err := applyEnvOverrides(config); err != nil {
				t.Fatalf("applyEnvOverrides: %v", err)
			}
			if config.Oracle.APIKey != "key-from-"+tt.envVar {
				t.Errorf("APIKey = %q", config.Oracle.APIKey)
			}
		})
	}
}

func TestEnvOverrides_ExplicitKeyWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	config := Default()
	config.Oracle.APIKey = "file-key"
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if config.Oracle.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", config.Oracle.APIKey)
	}
}

func TestLoadPath(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")
	t.Setenv("HIVESIGHT_LOG_LEVEL", "trace")

	config, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if config.Logging.Level != "trace" {
		t.Errorf("env should override file, got level %q", config.Logging.Level)
	}
}

func TestLoad_HomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, DirName), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, DirName, "config.yaml"), []byte("oracle:\n  provider: mock\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Oracle.Provider != "mock" {
		t.Errorf("expected Provider 'mock', got '%s'", config.Oracle.Provider)
	}
	if got := config.HistoryPath(); got != filepath.Join(home, DirName, "history.db") {
		t.Errorf("HistoryPath() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HivesightConfig)
		wantErr string
	}{
		{"valid", func(*HivesightConfig) {}, ""},
		{"unknown provider", func(c *HivesightConfig) { c.Oracle.Provider = "bard" }, "invalid provider"},
		{"temperature too high", func(c *HivesightConfig) { c.Oracle.Temperature = 2.5 }, "temperature"},
		{"negative temperature", func(c *HivesightConfig) { c.Oracle.Temperature = -0.1 }, "temperature"},
		{"zero concurrency", func(c *HivesightConfig) { c.Dispatch.Concurrency = 0 }, "concurrency"},
		{"zero attempts", func(c *HivesightConfig) { c.Dispatch.MaxAttempts = 0 }, "max_attempts"},
		{"negative delay", func(c *HivesightConfig) { c.Dispatch.TransientDelay = -time.Second }, "non-negative"},
		{"max below initial", func(c *HivesightConfig) {
			c.Dispatch.InitialDelay = 10 * time.Second
			c.Dispatch.MaxDelay = time.Second
		}, "max_delay"},
		{"negative rate", func(c *HivesightConfig) { c.Dispatch.RequestsPerSecond = -1 }, "requests_per_second"},
		{"bad log level", func(c *HivesightConfig) { c.Logging.Level = "verbose" }, "log level"},
		{"empty log level", func(c *HivesightConfig) { c.Logging.Level = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ValidProviders(t *testing.T) {
	for _, provider := range []string{"openai", "ollama", "anthropic", "gemini", "mock"} {
		t.Run(provider, func(t *testing.T) {
			config := Default()
			config.Oracle.Provider = provider
			if err := config.Validate(); err != nil {
				t.Errorf("expected provider '%s' to be valid, got error: %v", provider, err)
			}
		})
	}
}

func TestRedactedAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "(set)"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}

	for _, tt := range tests {
		c := OracleConfig{APIKey: tt.key}
		if got := c.RedactedAPIKey(); got != tt.want {
			t.Errorf("RedactedAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestOracleConfigString(t *testing.T) {
	c := OracleConfig{Provider: "openai", APIKey: "sk-secret-key-very-long-1234", Model: "gpt-4o-mini"}
	s := c.String()

	if strings.Contains(s, "secret") {
		t.Errorf("String() leaked API key: %s", s)
	}
	if !strings.Contains(s, "gpt-4o-mini") {
		t.Errorf("String() should contain model, got: %s", s)
	}
}

func TestOracleConfigParams(t *testing.T) {
	c := Default().Oracle
	c.Models = map[string]string{"cheap": "gpt-3.5-turbo"}
	c.Temperature = 0.3

	p := c.Params("cheap")
	if p.Model != "gpt-3.5-turbo" || p.Temperature != 0.3 || p.MaxTokens != 5 {
		t.Errorf("Params(cheap) = %+v", p)
	}
	if p := c.Params(""); p.Model != "gpt-4o-mini" {
		t.Errorf("Params(\"\").Model = %q", p.Model)
	}
	if p := c.Params("o3"); p.Model != "o3" {
		t.Errorf("unknown alias should pass through, got %q", p.Model)
	}

	cc := c.ClientConfig()
	if cc.Provider != c.Provider || cc.Timeout != c.Timeout {
		t.Errorf("ClientConfig() = %+v", cc)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
oracle:
  provider: [invalid yaml
`)

	_, err := LoadFromFile(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
