package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/hivesight/internal/aggregate"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/oracle"
	"github.com/nvandessel/hivesight/internal/persona"
	"github.com/nvandessel/hivesight/internal/sanitize"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Provider  string `json:"provider"`
	Available bool   `json:"available"`
	Personas  int    `json:"personas"`
}

// ErrorResponse is the body of every failed request. Report is set when a run
// completed but produced no usable answers.
type ErrorResponse struct {
	Error  string         `json:"error"`
	Report *survey.Report `json:"report,omitempty"`
}

// ListResponse is the body of GET /v1/simulations.
type ListResponse struct {
	Runs []store.RunSummary `json:"runs"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if s.deps.Oracle != nil {
		resp.Provider = s.deps.Oracle.Name()
		resp.Available = true
		if ch, ok := s.deps.Oracle.(oracle.Checker); ok {
			resp.Available = ch.Available()
		}
	}
	if s.deps.Pool != nil {
		resp.Personas = s.deps.Pool.Len()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateSimulation(c *gin.Context) {
	var req survey.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if kind, err := models.ParseQuestionKind(string(req.Question.Kind)); err == nil {
		req.Question.Kind = kind
	}
	req.Question = sanitize.Question(req.Question)

	ctx := c.Request.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	report, err := survey.RunSimulation(ctx, s.deps, req)
	if report != nil {
		if saveErr := s.store.SaveRun(context.WithoutCancel(ctx), report); saveErr != nil {
			s.logger.Warn("failed to record run", "run", report.ID, "error", saveErr)
		}
	}
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Report: report})
		return
	}

	c.Header("Location", "/v1/simulations/"+report.ID)
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleListSimulations(c *gin.Context) {
	var opts store.ListOptions
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		opts.Limit = n
	}
	if raw := c.Query("kind"); raw != "" {
		kind, err := models.ParseQuestionKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		opts.Kind = kind
	}

	runs, err := s.store.ListRuns(c.Request.Context(), opts)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListResponse{Runs: runs})
}

func (s *Server) handleGetSimulation(c *gin.Context) {
	report, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// statusFor maps pipeline and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, survey.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, persona.ErrEmptyPopulation), errors.Is(err, persona.ErrNoWeight):
		return http.StatusUnprocessableEntity
	case errors.Is(err, aggregate.ErrNoValidResponses):
		return http.StatusBadGateway
	case errors.Is(err, oracle.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAmbiguousID):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
