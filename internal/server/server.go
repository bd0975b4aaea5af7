// Package server exposes the chatbot over HTTP.
package server

import (
	"context"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"chemi/internal/agent"
	"chemi/internal/config"
	"chemi/internal/domain"
)

// Agent handles one user turn. Satisfied by *agent.Pipeline.
type Agent interface {
	Handle(ctx context.Context, q agent.Query) (domain.Answer, error)
}

// Server wires the echo router around the agent.
type Server struct {
	echo  *echo.Echo
	agent Agent
	log   *zap.Logger
}

// New builds the router with CORS, panic recovery and request logging.
func New(a Agent, cfg config.ServerConfig, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	s := &Server{echo: e, agent: a, log: log}
	e.GET("/health", s.handleHealth)
	e.POST("/query", s.handleQuery)
	if cfg.StaticDir != "" && dirExists(cfg.StaticDir) {
		e.Static("/", cfg.StaticDir)
	} else {
		if cfg.StaticDir != "" {
			log.Warn("static dir not found, serving service info at /",
				zap.String("dir", cfg.StaticDir))
		}
		e.GET("/", s.handleRoot)
	}
	return s
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "chemi"})
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":   "chemi",
		"endpoints": []string{"POST /query", "GET /health"},
	})
}
