package server

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	Addr   string

	checks map[string]HealthChecker
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

func New(addr string, mode string) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		checks: make(map[string]HealthChecker),
	}

	// Health check endpoint reporting every registered dependency
	r.GET("/health", s.healthHandler)

	return s
}

// AddHealthCheck registers a dependency reported by /health under name.
func (s *Server) AddHealthCheck(name string, checker HealthChecker) {
	if checker == nil {
		return
	}
	s.checks[name] = checker
}

// MountMetrics exposes h at GET /metrics.
func (s *Server) MountMetrics(h http.Handler) {
	s.Engine.GET("/metrics", gin.WrapH(h))
}

// API returns the route group for authenticated endpoints.
func (s *Server) API(middleware ...gin.HandlerFunc) *gin.RouterGroup {
	return s.Engine.Group("", middleware...)
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	report := gin.H{}
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			slog.Error("Health check failed", "component", name, "error", err)
			report[name] = "unreachable"
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "connected"
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status": health,
		"checks": report,
	})
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
