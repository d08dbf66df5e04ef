// Package api exposes simulations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/ratelimit"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

const shutdownTimeout = 10 * time.Second

// Config holds the collaborators a Server needs.
type Config struct {
	Deps survey.Deps

	// Store records completed runs. Nil keeps history in memory.
	Store store.RunStore

	// Limiters guard the simulate and history routes per client address.
	// Nil disables rate limiting.
	Limiters ratelimit.ToolLimiters

	// RunTimeout bounds a single simulation request; zero means no bound
	// beyond the client connection.
	RunTimeout time.Duration

	Logger *slog.Logger
}

// Server serves the simulation API.
type Server struct {
	deps       survey.Deps
	store      store.RunStore
	limiters   ratelimit.ToolLimiters
	runTimeout time.Duration
	logger     *slog.Logger
	router     *gin.Engine
}

// NewServer builds a server and its routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		deps:       cfg.Deps,
		store:      cfg.Store,
		limiters:   cfg.Limiters,
		runTimeout: cfg.RunTimeout,
		logger:     cfg.Logger,
	}
	if s.store == nil {
		s.store = store.NewInMemoryRunStore()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/v1")
	v1.POST("/simulations", s.limit(ratelimit.ToolSimulate), s.handleCreateSimulation)
	v1.GET("/simulations", s.limit(ratelimit.ToolHistory), s.handleListSimulations)
	v1.GET("/simulations/:id", s.limit(ratelimit.ToolHistory), s.handleGetSimulation)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// limit rejects requests over the route's per-client budget.
func (s *Server) limit(tool string) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := s.limiters[tool]
		if ok && !l.Allow(tool+"|"+c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("rate limit exceeded for %s, please try again shortly", tool),
			})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
