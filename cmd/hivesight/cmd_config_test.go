package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/hivesight/internal/config"
)

func TestConfigPath(t *testing.T) {
	home := isolateHome(t, t.TempDir())

	stdout, _, err := execute(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, config.DirName, "config.yaml")
	if strings.TrimSpace(stdout) != want {
		t.Errorf("path = %q, want %q", strings.TrimSpace(stdout), want)
	}

	explicit := filepath.Join(t.TempDir(), "alt.yaml")
	stdout, _, err = execute(t, "config", "path", "--config", explicit)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != explicit {
		t.Errorf("path = %q, want %q", strings.TrimSpace(stdout), explicit)
	}
}

func TestConfigSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		key, value, want string
	}{
		{"oracle.provider", "mock", "mock"},
		{"oracle.temperature", "0.7", "0.7"},
		{"dispatch.concurrency", "8", "8"},
		{"dispatch.initial_delay", "250ms", "250ms"},
		{"history.enabled", "false", "false"},
		{"oracle.models.fast", "gpt-4o-mini", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if _, _, err := execute(t, "config", "set", tt.key, tt.value, "--config", path); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			stdout, _, err := execute(t, "config", "get", tt.key, "--config", path)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got := strings.TrimSpace(stdout); got != tt.key+" = "+tt.want {
				t.Errorf("get = %q, want %q", got, tt.key+" = "+tt.want)
			}
		})
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dispatch.InitialDelay != 250*time.Millisecond || cfg.Oracle.ResolveModel("fast") != "gpt-4o-mini" {
		t.Errorf("saved config = %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name, key, value, wantMsg string
	}{
		{"unknown key", "llm.provider", "openai", "unknown configuration key"},
		{"bad provider", "oracle.provider", "cohere", "invalid provider"},
		{"temperature range", "oracle.temperature", "3", "temperature"},
		{"bad duration", "oracle.timeout", "soon", "invalid duration"},
		{"bad integer", "dispatch.burst", "many", "invalid integer"},
		{"bad boolean", "history.enabled", "maybe", "invalid boolean"},
		{"inverted delays", "dispatch.max_delay", "1ms", "max_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "config", "set", tt.key, tt.value, "--config", path)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("rejected values must not create the config file")
	}
}

func TestConfigSet_DoesNotPersistEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("HIVESIGHT_API_KEY", "sk-from-environment-123456")
	t.Setenv("HIVESIGHT_MODEL", "env-model")

	if _, _, err := execute(t, "config", "set", "oracle.api_key", "${OPENAI_API_KEY}", "--config", path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "sk-from-environment") || strings.Contains(text, "env-model") {
		t.Errorf("environment values leaked into config:\n%s", text)
	}
	if !strings.Contains(text, "${OPENAI_API_KEY}") {
		t.Errorf("api key reference not saved verbatim:\n%s", text)
	}
}

func TestConfigList_RedactsAPIKey(t *testing.T) {
	isolateHome(t, t.TempDir())
	t.Setenv("HIVESIGHT_API_KEY", "sk-abcdefghijklmnop")

	stdout, _, err := execute(t, "config", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stdout, "sk-abcdefghijklmnop") {
		t.Error("API key leaked in JSON output")
	}
	var cfg config.HivesightConfig
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Oracle.APIKey != "sk-a...mnop" {
		t.Errorf("api_key = %q, want redacted", cfg.Oracle.APIKey)
	}

	stdout, _, err = execute(t, "config", "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stdout, "sk-abcdefghijklmnop") || !strings.Contains(stdout, "sk-a...mnop") {
		t.Errorf("text output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Dispatch Settings:") || !strings.Contains(stdout, "dispatch.max_attempts:") {
		t.Errorf("text output missing dispatch section:\n%s", stdout)
	}
}

func TestConfigGet_Unknown(t *testing.T) {
	isolateHome(t, t.TempDir())

	_, _, err := execute(t, "config", "get", "nope.key")
	if err == nil || !strings.Contains(err.Error(), "unknown configuration key") {
		t.Errorf("error = %v", err)
	}
}
