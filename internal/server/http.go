// Package server exposes the pipeline over HTTP: /run, /health, /stats.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"PressMonitor/internal/usecase"
)

// Server wraps the gin engine around the orchestrator.
type Server struct {
	engine       *gin.Engine
	orchestrator *usecase.Orchestrator
	logger       *slog.Logger
}

// New builds the HTTP surface.
func New(orchestrator *usecase.Orchestrator, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, orchestrator: orchestrator, logger: logger}

	engine.GET("/health", s.handleHealth)
	engine.GET("/stats", s.handleStats)
	engine.GET("/run", s.handleRun)
	engine.POST("/run", s.handleRun)

	return s
}

// Run blocks serving on addr.
func (s *Server) Run(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleRun(c *gin.Context) {
	report := s.orchestrator.Run(c.Request.Context())
	status := http.StatusOK
	if !report.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	report := s.orchestrator.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.orchestrator.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
