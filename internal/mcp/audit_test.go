package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nvandessel/hivesight/internal/oracle"
	"github.com/nvandessel/hivesight/internal/ratelimit"
)

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func readAuditEntries(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFileName))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	logger.Log(AuditEntry{
		Timestamp:  time.Now(),
		Tool:       ratelimit.ToolSimulate,
		DurationMs: 42,
		Status:     "success",
		RunID:      "run-1",
		Params:     map[string]string{"kind": "likert"},
	})
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	// Writes after close are dropped.
	logger.Log(AuditEntry{Tool: "late"})

	entries := readAuditEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Tool != ratelimit.ToolSimulate || e.DurationMs != 42 || e.Status != "success" || e.RunID != "run-1" {
		t.Errorf("entry = %+v", e)
	}
	if e.Params["kind"] != "likert" {
		t.Errorf("params[kind] = %q, want likert", e.Params["kind"])
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	defer logger.Close()

	info, err := os.Stat(filepath.Join(dir, AuditFileName))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestAuditLogger_Concurrent(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: ratelimit.ToolHistory, DurationMs: int64(i), Status: "success"})
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readAuditEntries(t, dir)); got != 50 {
		t.Errorf("got %d entries, want 50", got)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	age := 30.0
	got := sanitizeToolParams(map[string]any{
		"statement":   "Do you like my secret product?",
		"kind":        "yes_no",
		"sample_size": 100,
		"age_min":     &age,
		"age_max":     (*float64)(nil),
		"regions":     []string{},
		"model":       "",
		"api_key":     "sk-123",
	})

	want := map[string]string{
		"statement":    "(set)",
		"kind":         "yes_no",
		"sample_size":  "100",
		"age_min":      "(set)",
		"_param_count": "5",
	}
	if len(got) != len(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("params[%s] = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["api_key"]; ok {
		t.Error("unknown params must not be logged")
	}

	if sanitizeToolParams(nil) != nil {
		t.Error("nil params should give nil")
	}
}

func TestHandlers_WriteAuditEntries(t *testing.T) {
	dir := t.TempDir()
	s, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Deps:     testDeps(oracle.NewMockOracle().WithResponse("3")),
		AuditDir: dir,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, out, err := s.handleSimulate(ctx, nil, SimulateInput{Statement: "private wording", SampleSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.handleHistory(ctx, nil, HistoryInput{ID: "nope"}); err == nil {
		t.Fatal("expected not found")
	}
	s.Close()

	entries := readAuditEntries(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Tool != ratelimit.ToolSimulate || entries[0].Status != "success" || entries[0].RunID != out.RunID {
		t.Errorf("simulate entry = %+v", entries[0])
	}
	if entries[0].Params["statement"] != "(set)" {
		t.Errorf("statement should be redacted, got %q", entries[0].Params["statement"])
	}
	if entries[1].Tool != ratelimit.ToolHistory || entries[1].Status != "error" || entries[1].Error == "" {
		t.Errorf("history entry = %+v", entries[1])
	}
}
