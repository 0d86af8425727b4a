// Package http provides the HTTP adapter over the expense services.
// It translates requests into service calls and carries no decision
// logic of its own.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// NewServer creates a new HTTP server with the given handlers
func NewServer(config ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: handlers,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a request logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		// Expenses
		api.POST("/expenses", s.handlers.CreateExpense)
		api.GET("/expenses", s.handlers.ListExpenses)
		api.GET("/expenses/flagged", s.handlers.ListFlaggedExpenses)
		api.GET("/expenses/:id", s.handlers.GetExpense)
		api.PATCH("/expenses/bulk", s.handlers.BulkUpdateExpenses)
		api.PATCH("/expenses/:id", s.handlers.UpdateExpense)
		api.DELETE("/expenses/:id", s.handlers.DeleteExpense)

		// Per-user expense views and batch upload
		api.GET("/users/:id/expenses", s.handlers.ListUserExpenses)
		api.GET("/users/:id/expenses/flagged", s.handlers.ListUserFlaggedExpenses)
		api.POST("/users/:id/expenses/upload", s.handlers.UploadExpenses)

		// Policies
		api.POST("/policies", s.handlers.CreatePolicy)
		api.GET("/policies", s.handlers.ListPolicies)
		api.GET("/policies/:id", s.handlers.GetPolicy)
		api.PATCH("/policies/:id", s.handlers.UpdatePolicy)
		api.DELETE("/policies/:id", s.handlers.DeletePolicy)

		// Companies and users
		api.POST("/companies", s.handlers.CreateCompany)
		api.GET("/companies", s.handlers.ListCompanies)
		api.GET("/companies/:id", s.handlers.GetCompany)
		api.POST("/users", s.handlers.CreateUser)
		api.GET("/users/:id", s.handlers.GetUser)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
