package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/api"
	"github.com/nvandessel/hivesight/internal/ratelimit"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation HTTP API",
		Long: `Start an HTTP server exposing simulations as a JSON API.

Endpoints:
  GET  /health                  liveness and persona count
  POST /v1/simulations          run a simulation
  GET  /v1/simulations          list recorded runs (?limit=&kind=)
  GET  /v1/simulations/{id}     fetch a run by ID or unique prefix

Examples:
  hivesight serve
  hivesight serve --addr :9090 --run-timeout 2m`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default server.addr)")
	cmd.Flags().Duration("run-timeout", 5*time.Minute, "Abort a simulation request after this long (0 = no limit)")
	cmd.Flags().Bool("no-rate-limit", false, "Disable per-client rate limiting")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	runTimeout, _ := cmd.Flags().GetDuration("run-timeout")
	noRateLimit, _ := cmd.Flags().GetBool("no-rate-limit")

	a, err := newApp(cmd, appNeeds{pool: true, oracle: true, store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	switch a.cfg.Logging.Level {
	case "debug", "trace":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	var limiters ratelimit.ToolLimiters
	if !noRateLimit {
		limiters = ratelimit.NewToolLimiters()
	}

	srv := api.NewServer(api.Config{
		Deps:       a.deps(),
		Store:      a.store,
		Limiters:   limiters,
		RunTimeout: runTimeout,
		Logger:     a.logger,
	})

	ctx, cancel := signalContext(cmdContext(cmd))
	defer cancel()
	return srv.ListenAndServe(ctx, addr)
}
