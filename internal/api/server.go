// Package api serves the journal and its analytics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/performance"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
)

// Options configures the server.
type Options struct {
	Port          int
	CORSOrigin    string
	DefaultWindow analytics.Window
	ActiveOnly    bool
	Version       string
}

// Server HTTP API server
type Server struct {
	router  *gin.Engine
	store   store.DataStore
	logger  zerolog.Logger
	opts    Options
	now     func() time.Time
	started time.Time
}

// NewServer creates API server
func NewServer(ds store.DataStore, logger zerolog.Logger, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinLogger(logger))
	router.Use(corsMiddleware(opts.CORSOrigin))

	s := &Server{
		router:  router,
		store:   ds,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.opts.Port).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware CORS middleware
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/trades", s.handleListTrades)
		api.POST("/trades", s.handleCreateTrade)
		api.GET("/trades/:id", s.handleGetTrade)
		api.PUT("/trades/:id", s.handleUpdateTrade)
		api.DELETE("/trades/:id", s.handleDeleteTrade)

		api.GET("/strategies", s.handleListStrategies)
		api.POST("/strategies", s.handleCreateStrategy)
		api.GET("/strategies/:id", s.handleGetStrategy)
		api.PUT("/strategies/:id", s.handleUpdateStrategy)
		api.DELETE("/strategies/:id", s.handleDeleteStrategy)

		api.GET("/psychology", s.handleListPsychology)
		api.POST("/psychology", s.handleCreatePsychology)
		api.GET("/psychology/:id", s.handleGetPsychology)
		api.PUT("/psychology/:id", s.handleUpdatePsychology)
		api.DELETE("/psychology/:id", s.handleDeletePsychology)

		analyticsGroup := api.Group("/analytics")
		analyticsGroup.GET("/summary", s.handleSummary)
		analyticsGroup.GET("/monthly", s.handleMonthly)
		analyticsGroup.GET("/daily", s.handleDaily)
		analyticsGroup.GET("/strategies", s.handleStrategyBreakdown)
		analyticsGroup.GET("/emotions", s.handleEmotionBreakdown)
	}

	s.router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, fmt.Errorf("route not found: %s %s", c.Request.Method, c.Request.URL.Path))
	})
}

// backendReporter is implemented by stores that call a remote backend.
type backendReporter interface {
	BackendHealth() resilience.BreakerStats
}

func (s *Server) handleHealth(c *gin.Context) {
	mem := performance.MemoryStats()
	health := gin.H{
		"status":  "ok",
		"version": s.opts.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"memory":  mem,
		"heap":    performance.FormatBytes(mem.HeapInuse),
	}
	if r, isRemote := s.store.(backendReporter); isRemote {
		backend := r.BackendHealth()
		health["backend"] = backend
		health["backendFailureRate"] = backend.FailureRate()
		if backend.State == resilience.CircuitOpen {
			health["status"] = "degraded"
		}
	}
	ok(c, http.StatusOK, health)
}

// requestLogger returns the request-scoped logger installed by
// logging.GinLogger, tagged with the handler's operation.
func requestLogger(c *gin.Context, operation string) zerolog.Logger {
	return logging.WithOperation(logging.FromContext(c.Request.Context()), operation)
}

// ok writes the success envelope.
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail writes the error envelope.
func fail(c *gin.Context, status int, err error) {
	c.Error(err)
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	fail(c, errorStatus(err), err)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, apperrors.NewValidationError("id", c.Param("id"), "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, http.StatusBadRequest, apperrors.NewValidationError("body", nil, "invalid JSON: "+err.Error()))
		return false
	}
	return true
}
