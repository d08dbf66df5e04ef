// Package mcp provides an MCP (Model Context Protocol) server for hivesight.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/ratelimit"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

// Server wraps the MCP SDK server and exposes simulations as tools.
type Server struct {
	server       *sdk.Server
	deps         survey.Deps
	store        store.RunStore
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "hivesight")
	Version string // Server version

	Deps survey.Deps

	// Store records runs. Nil keeps history in memory for the session.
	Store store.RunStore

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	// Limiters overrides the default per-tool limits.
	Limiters ratelimit.ToolLimiters

	Logger *slog.Logger
}

// NewServer creates a new MCP server with hivesight tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Deps.Pool == nil || cfg.Deps.Oracle == nil {
		return nil, fmt.Errorf("mcp server: persona pool and oracle are required")
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	s := &Server{
		server:       mcpServer,
		deps:         cfg.Deps,
		store:        cfg.Store,
		toolLimiters: cfg.Limiters,
		logger:       cfg.Logger,
	}
	if s.store == nil {
		s.store = store.NewInMemoryRunStore()
	}
	if s.toolLimiters == nil {
		s.toolLimiters = ratelimit.NewToolLimiters()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled or
// the process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()
	return err
}

// Close releases the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
