// Package api exposes a thin control plane over the batch engine: trigger
// a run for a date range, inspect its status, and stream its journal live
// over a websocket. The simulation CLI (cmd/backtest) never depends on
// this package — it is an additive convenience, not a second engine.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"backtest-engine/internal/auth"
	"backtest-engine/internal/database"
)

// Config holds the control-plane HTTP server configuration.
type Config struct {
	Port           int
	Host           string
	AllowedOrigins string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the control-plane HTTP API.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	db         *database.DB
	runs       *RunManager
	jwt        *auth.JWTManager
	authOn     bool
	hub        *WSHub
	cfg        Config
}

// NewServer builds the control-plane router. jwt may be nil, in which
// case every route runs unauthenticated — matching AuthConfig.Enabled=false.
func NewServer(cfg Config, db *database.DB, runs *RunManager, jwt *auth.JWTManager, hub *WSHub) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.AllowedOrigins}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router: router,
		db:     db,
		runs:   runs,
		jwt:    jwt,
		authOn: jwt != nil,
		hub:    hub,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	if s.authOn {
		v1.Use(auth.RequireBearerToken(s.jwt))
	}
	{
		v1.POST("/runs", s.handleStartRun)
		v1.GET("/runs/:id", s.handleRunStatus)
		v1.GET("/runs/:id/events", s.handleRunEvents)
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	log.Printf("[api] control plane listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control plane server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Pool.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
