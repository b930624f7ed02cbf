// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/database/redis"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/handlers"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/routes"
	"github.com/your-org/retail-pos-backend/internal/pkg/metrics"
)

// Handlers bundles the route handlers the server mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Inventory *handlers.InventoryHandler
	Sales     *handlers.SalesHandler
	Loyalty   *handlers.LoyaltyHandler
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	gin        *gin.Engine
	httpServer *http.Server
	db         *postgres.Database
	redis      *redis.Client
	handlers   Handlers
	metrics    *metrics.Registry
	logger     *logrus.Logger
	startedAt  time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, db *postgres.Database, redisClient *redis.Client,
	h Handlers, reg *metrics.Registry, logger *logrus.Logger) *Server {
	return &Server{
		config:   cfg,
		db:       db,
		redis:    redisClient,
		handlers: h,
		metrics:  reg,
		logger:   logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s.gin = gin.New()
	s.setupMiddleware()
	s.setupRoutes()
	s.startedAt = time.Now()

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithFields(logrus.Fields{
		"port":        s.config.Server.Port,
		"environment": s.config.App.Environment,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.Logger(s.config))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config, s.redis.GetClient()))
	s.gin.Use(middleware.Timeout(30 * time.Second))
	s.gin.Use(func(c *gin.Context) {
		s.metrics.Inc("http_requests_total")
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.metrics.Inc("http_errors_total")
		}
	})
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupAuthRoutes(apiV1, s.handlers.Auth, s.config)
	routes.SetupInventoryRoutes(apiV1, s.handlers.Inventory, s.config)
	routes.SetupSalesRoutes(apiV1, s.handlers.Sales, s.config)
	routes.SetupLoyaltyRoutes(apiV1, s.handlers.Loyalty, s.config)
}

// healthCheck verifies database and cache connectivity
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	if err := s.redis.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "redis ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck reports uptime and operation counters
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).String(),
		"counters":  s.metrics.Snapshot(),
	})
}
