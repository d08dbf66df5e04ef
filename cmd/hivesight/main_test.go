package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const testPersonasCSV = `age,state,wages,weight
22,CA,28000,1
36,CA,95000,3
44,FL,51000,1
49,TX,130000,2
63,NY,88000,2
71,FL,33000,1
`

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "hivesight",
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file")
	rootCmd.PersistentFlags().String("personas", "", "Persona dataset")
	rootCmd.PersistentFlags().String("provider", "", "Oracle provider")
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.hivesight/
// MUST be called for any test that creates stores
func isolateHome(t *testing.T, tmpDir string) string {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	return tmpHome
}

// setupCLI isolates HOME, writes a persona dataset and selects the mock oracle.
func setupCLI(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	home := isolateHome(t, tmpDir)

	personas := filepath.Join(tmpDir, "personas.csv")
	if err := os.WriteFile(personas, []byte(testPersonasCSV), 0600); err != nil {
		t.Fatalf("Failed to write personas: %v", err)
	}

	t.Setenv("HIVESIGHT_PROVIDER", "mock")
	t.Setenv("HIVESIGHT_PERSONAS", personas)
	t.Setenv("HIVESIGHT_HISTORY", "true")
	t.Setenv("HIVESIGHT_HISTORY_PATH", filepath.Join(home, ".hivesight", "history.db"))
	t.Setenv("HIVESIGHT_LOG_LEVEL", "info")
	t.Setenv("HIVESIGHT_CONCURRENCY", "4")
	t.Setenv("HIVESIGHT_OTEL_ENABLED", "false")
	return tmpDir
}

// execute runs the full root command and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "run", "personas", "history", "serve", "mcp-server", "config"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"json", "config", "personas", "provider"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(cmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--json"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"version":"`+version+`"`)) {
		t.Errorf("version output = %s", out.String())
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567"},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
