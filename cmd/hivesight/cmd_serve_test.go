package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewServeCmd_Flags(t *testing.T) {
	cmd := newServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want serve", cmd.Use)
	}
	timeout, err := cmd.Flags().GetDuration("run-timeout")
	if err != nil || timeout != 5*time.Minute {
		t.Errorf("run-timeout default = %v (%v), want 5m", timeout, err)
	}
	for _, name := range []string{"addr", "no-rate-limit"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s", name)
		}
	}
}

func TestServe_RequiresPersonas(t *testing.T) {
	setupCLI(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	_, _, err := execute(t, "serve", "--personas", missing)
	if err == nil || !strings.Contains(err.Error(), "opening persona dataset") {
		t.Errorf("error = %v, want missing dataset", err)
	}
}

func TestMCPServer_RequiresPersonas(t *testing.T) {
	setupCLI(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	_, _, err := execute(t, "mcp-server", "--personas", missing)
	if err == nil || !strings.Contains(err.Error(), "opening persona dataset") {
		t.Errorf("error = %v, want missing dataset", err)
	}
}
