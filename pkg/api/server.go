// Package api exposes the simulation pipeline over HTTP. It is a thin
// presentation layer over the risk service; all numerical semantics live in
// the internal packages.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzzdr/credit-risk-engine/internal/risk"
	"github.com/rzzdr/credit-risk-engine/internal/store"
	"github.com/rzzdr/credit-risk-engine/internal/websocket"
	"github.com/rzzdr/credit-risk-engine/pkg/metrics"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MetricsEnabled  bool
	EnvironmentMode string
}

// Server represents the API server
type Server struct {
	config      Config
	router      *gin.Engine
	httpServer  *http.Server
	service     *risk.Service
	results     *store.ResultStore
	hub         *websocket.Hub
	recorder    *metrics.Recorder
	log         *logger.Logger
}

// NewServer creates a new API server. Hub may be nil to disable streaming.
func NewServer(config Config, service *risk.Service, results *store.ResultStore, hub *websocket.Hub, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	if config.EnvironmentMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		service:  service,
		results:  results,
		hub:      hub,
		recorder: recorder,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()
	return server
}

// Start starts the API server; it blocks until the listener fails or the
// server is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Handler exposes the router, used by tests and embedding servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware())
	s.router.Use(RecoveryMiddleware())
	if s.recorder != nil {
		s.router.Use(MetricsMiddleware(s.recorder))
	}

	s.router.GET("/health", s.handleHealth)

	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if s.hub != nil {
		s.router.GET("/ws", func(c *gin.Context) {
			s.hub.HandleWebSocket(c.Writer, c.Request)
		})
	}

	v1 := s.router.Group("/api/v1")

	portfolios := v1.Group("/portfolios")
	portfolios.POST("", s.handleGeneratePortfolio)
	portfolios.GET("", s.handleListPortfolios)
	portfolios.GET("/:id", s.handleGetPortfolio)
	portfolios.POST("/:id/train", s.handleTrainPortfolio)
	portfolios.POST("/:id/simulate", s.handleSimulate)
	portfolios.POST("/:id/scenarios", s.handleRunScenarioSet)

	v1.GET("/results", s.handleListResults)
	v1.GET("/results/:scenario", s.handleGetResult)
}
