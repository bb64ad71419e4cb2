package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gocausal/internal"
	"gocausal/internal/config"
)

// Server wires the HTTP routes onto a gin engine
type Server struct {
	config    *config.Config
	logger    *internal.Logger
	router    *gin.Engine
	startedAt time.Time
}

// NewServer creates a new server with all routes registered
func NewServer(cfg *config.Config, logger *internal.Logger) *Server {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	s := &Server{
		config:    cfg,
		logger:    logger.WithComponent("http"),
		router:    gin.New(),
		startedAt: time.Now(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Router exposes the engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)

	NewCCMHandler(s.config, s.logger).RegisterRoutes(api)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
