package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/config"
	"github.com/nvandessel/hivesight/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Serve hivesight over the Model Context Protocol on stdin/stdout.

Tools:
  hivesight_simulate   run a simulated survey
  hivesight_history    list recorded runs or fetch one by ID

Resources:
  hivesight://runs/recent   markdown digest of the latest runs

Tool calls are audited to ~/.hivesight/audit.jsonl with question text redacted.

Example client configuration:
  {"command": "hivesight", "args": ["mcp-server"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appNeeds{pool: true, oracle: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(&mcp.Config{
				Name:     "hivesight",
				Version:  version,
				Deps:     a.deps(),
				Store:    a.store,
				AuditDir: config.DataDir(),
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}
			// The server closes the store when it stops.
			a.store = nil

			a.logger.Info("mcp server starting", "version", version, "personas", a.pool.Len())
			return srv.Run(cmdContext(cmd))
		},
	}
}
