// Package http provides the HTTP API for sessiond: session stream
// subscription over Server-Sent Events, stop and prompt endpoints, health
// and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// HeartbeatInterval is how often open SSE streams emit a keep-alive
	// comment to defeat proxy idle timeouts.
	HeartbeatInterval time.Duration

	// SubscriberBuffer is the per-stream frame queue size; a consumer that
	// falls this far behind is disconnected as a slow consumer.
	SubscriberBuffer int
}

// Server provides HTTP endpoints for sessiond.
type Server struct {
	echo    *echo.Echo
	orch    *session.Orchestrator
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
}

// NewServer creates a new HTTP server over the given orchestrator.
func NewServer(orch *session.Orchestrator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8800
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.SubscriberBuffer == 0 {
		cfg.SubscriberBuffer = 64
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		orch:    orch,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			s.metrics.RequestStarted(c.Request().Context())
			err := next(c)
			duration := time.Since(start)
			s.metrics.RequestFinished(c.Request().Context(), c.Request().Method, c.Path(), c.Response().Status, duration)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/sessions/:session_id/stream", s.handleStream)
	v1.POST("/sessions/:session_id/stop", s.handleStop)
	v1.POST("/sessions/:session_id/prompt", s.handlePrompt)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStop forwards a stop request for the session through the hook
// pipeline and on to its event source.
func (s *Server) handleStop(c echo.Context) error {
	sessionID := c.Param("session_id")

	err := s.orch.Stop(c.Request().Context(), sessionID)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, StopResponse{Status: "stopping"})
	case errors.Is(err, session.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	default:
		if be, ok := session.IsBlocked(err); ok {
			return c.JSON(http.StatusConflict, BlockedResponse{
				Error:  "stop blocked by hook",
				Reason: be.Reason,
			})
		}
		return err
	}
}

// handlePrompt submits a user prompt to the session.
func (s *Server) handlePrompt(c echo.Context) error {
	sessionID := c.Param("session_id")

	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid prompt request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt field is required")
	}

	err := s.orch.SubmitPrompt(c.Request().Context(), sessionID, req.Prompt)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, PromptResponse{Status: "accepted"})
	case errors.Is(err, session.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	default:
		if be, ok := session.IsBlocked(err); ok {
			return c.JSON(http.StatusConflict, BlockedResponse{
				Error:  "prompt blocked by hook",
				Reason: be.Reason,
			})
		}
		return err
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for registering additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
