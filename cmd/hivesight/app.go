package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/config"
	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/dispatch"
	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/oracle"
	"github.com/nvandessel/hivesight/internal/persona"
	"github.com/nvandessel/hivesight/internal/ratelimit"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
	"github.com/nvandessel/hivesight/internal/tracing"
)

// app bundles the collaborators a command needs, built from configuration.
type app struct {
	cfg    *config.HivesightConfig
	logger *slog.Logger
	events *logging.EventLogger
	pool   *persona.Pool
	oracle oracle.Oracle
	store  store.RunStore

	shutdownTracing func(context.Context) error
}

// appNeeds selects which collaborators newApp builds.
type appNeeds struct {
	pool   bool
	oracle bool
	store  bool
}

// configPath returns the --config flag or ~/.hivesight/config.yaml.
func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	dir := config.DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// loadConfig loads, overrides from flags and validates the configuration.
func loadConfig(cmd *cobra.Command) (*config.HivesightConfig, error) {
	var (
		cfg *config.HivesightConfig
		err error
	)
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		cfg, err = config.LoadPath(p)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if p, _ := cmd.Flags().GetString("personas"); p != "" {
		cfg.Personas.Path = p
	}
	if cmd.Flags().Changed("provider") {
		cfg.Oracle.Provider, _ = cmd.Flags().GetString("provider")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, needs appNeeds) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
	}
	if dir := config.DataDir(); dir != "" {
		a.events = logging.NewEventLogger(dir, cfg.Logging.Level)
	}

	shutdown, err := tracing.Setup(cmdContext(cmd), cfg.Tracing.Endpoint)
	if err != nil {
		a.logger.Warn("tracing disabled", "error", err)
	}
	a.shutdownTracing = shutdown

	if needs.pool {
		if cfg.Personas.Path == "" {
			a.Close()
			return nil, fmt.Errorf("no persona dataset configured (set personas.path, HIVESIGHT_PERSONAS or --personas)")
		}
		pool, err := persona.LoadFile(cfg.Personas.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		a.logger.Debug("personas loaded", "path", cfg.Personas.Path, "count", pool.Len())
	}

	if needs.oracle {
		o, err := oracle.New(cfg.Oracle.ClientConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create oracle: %w", err)
		}
		a.oracle = o
	}

	if needs.store {
		s, err := openStore(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = s
	}

	return a, nil
}

// openStore opens the SQLite history, or an in-memory store when history is off.
func openStore(cfg *config.HivesightConfig) (store.RunStore, error) {
	path := cfg.HistoryPath()
	if !cfg.History.Enabled || path == "" {
		return store.NewInMemoryRunStore(), nil
	}
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

// deps builds the survey collaborators from configuration.
func (a *app) deps() survey.Deps {
	d := a.cfg.Dispatch
	opts := dispatch.Options{
		Concurrency: d.Concurrency,
		Policy: dispatch.Policy{
			MaxAttempts:      d.MaxAttempts,
			InitialDelay:     d.InitialDelay,
			MaxDelay:         d.MaxDelay,
			TransientRetries: constants.DefaultTransientRetries,
			TransientDelay:   d.TransientDelay,
		},
		Logger: a.logger,
		Events: a.events,
	}
	if d.RequestsPerSecond > 0 {
		opts.Limiter = ratelimit.NewLimiter(d.RequestsPerSecond, d.Burst)
	}

	return survey.Deps{
		Pool:     a.pool,
		Oracle:   a.oracle,
		Dispatch: opts,
		Params:   a.cfg.Oracle.Params,
		Logger:   a.logger,
		Events:   a.events,
	}
}

// Close flushes tracing and releases files. Safe to call more than once.
func (a *app) Close() {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracing shutdown", "error", err)
		}
		a.shutdownTracing = nil
	}
	if c, ok := a.oracle.(oracle.Closer); ok {
		c.Close()
	}
	a.oracle = nil
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing history", "error", err)
		}
		a.store = nil
	}
	a.events.Close()
	a.events = nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
