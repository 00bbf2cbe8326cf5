package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/server/handlers"
	"github.com/soundprediction/recall/pkg/telemetry"
	"github.com/soundprediction/recall/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	recall recall.Recall
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client recall.Recall, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		recall: client,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()

	s.router.Use(requestLogger(s.logger))
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Handler returns the configured router. Setup must have been called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	var (
		healthHandler       *handlers.HealthHandler
		entityHandler       *handlers.EntityHandler
		relationshipHandler *handlers.RelationshipHandler
		searchHandler       *handlers.SearchHandler
	)
	if s.recall != nil {
		healthHandler = handlers.NewHealthHandler(s.recall, s.recall)
		entityHandler = handlers.NewEntityHandler(s.recall, s.recall)
		relationshipHandler = handlers.NewRelationshipHandler(s.recall)
		searchHandler = handlers.NewSearchHandler(s.recall, s.recall, s.recall)
	} else {
		healthHandler = handlers.NewHealthHandler(nil, nil)
	}

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	if s.recall == nil {
		return
	}

	v1 := s.router.Group("/api/v1")
	{
		entities := v1.Group("/entities")
		{
			entities.POST("", entityHandler.Create)
			entities.GET("", entityHandler.List)
			entities.GET("/:id", entityHandler.Get)
			entities.PUT("/:id", entityHandler.Update)
			entities.DELETE("/:id", entityHandler.Delete)
			entities.GET("/:id/relationships", entityHandler.Relationships)
		}

		v1.POST("/relationships", relationshipHandler.Create)
		v1.DELETE("/relationships", relationshipHandler.Delete)

		v1.POST("/search", searchHandler.Search)
		v1.GET("/search", searchHandler.SearchGet)
		v1.GET("/analytics", searchHandler.Analytics)
		v1.POST("/graph/build", searchHandler.BuildGraph)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully. When a telemetry path is configured the
// search history is exported to Parquet after the listener has shut down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server...")

	var result *multierror.Error
	if err := s.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.ExportHistory(time.Now()); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// ExportHistory writes the search history to the telemetry directory. It
// does nothing without a telemetry path or history.
func (s *Server) ExportHistory(now time.Time) error {
	if s.recall == nil || s.config.Telemetry.ParquetPath == "" {
		return nil
	}
	records := s.recall.SearchHistory()
	if len(records) == 0 {
		return nil
	}

	path := filepath.Join(s.config.Telemetry.ParquetPath, telemetry.HistoryFileName(now))
	if err := telemetry.WriteSearchHistory(path, records); err != nil {
		return fmt.Errorf("failed to export search history: %w", err)
	}
	s.logger.Info("Search history exported", "path", path, "records", len(records))
	return nil
}

// requestLogger logs each request through the application logger.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", attrs...)
			return
		}
		logger.Debug("Request handled", attrs...)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyUserID, userID)
		}

		sessionID := c.GetHeader("X-Session-ID")
		if sessionID != "" {
			ctx = context.WithValue(ctx, types.ContextKeySessionID, sessionID)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
