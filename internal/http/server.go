// Package http exposes jobs over HTTP: a Server-Sent Events stream per job
// and a selection endpoint for the interactive exclusion step.
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

	"github.com/fyrsmithlabs/repopackd/internal/job"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
)

// Jobs is the orchestrator surface the server needs.
type Jobs interface {
	Start(ctx context.Context, req job.Request) (*job.Job, error)
	Reply(id string, r job.Reply) error
	Running() int
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// Heartbeat is the SSE keep-alive period.
	Heartbeat time.Duration
	// RatePerMinute limits job creation per client IP. Zero disables it.
	RatePerMinute int
	RateBurst     int
}

// DefaultHeartbeat keeps idle streams open through proxies.
const DefaultHeartbeat = 15 * time.Second

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	jobs    Jobs
	logger  *logging.Logger
	config  *Config
	limiter *ipLimiter
}

// NewServer creates a server. A nil config listens on localhost:8080.
func NewServer(jobs Jobs, logger *logging.Logger, cfg *Config) (*Server, error) {
	if jobs == nil {
		return nil, errors.New("jobs cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		jobs:    jobs,
		logger:  logger.Named("http"),
		config:  cfg,
		limiter: newIPLimiter(cfg.RatePerMinute, cfg.RateBurst),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(s.requestLogger)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/process-repo-streaming", s.handleStream, s.limiter.middleware)
	v1.POST("/jobs/:id/selection", s.handleSelection)
}

// requestLogger logs each request and carries the request ID into the
// request context.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), reqID)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Jobs   int    `json:"jobs"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Jobs: s.jobs.Running()})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. Open streams are cut when
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
