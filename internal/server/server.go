package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pulsecraft/reviewpulse/internal/config"
	"github.com/pulsecraft/reviewpulse/internal/domain"
	apperrors "github.com/pulsecraft/reviewpulse/internal/errors"
)

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	orchestrator domain.Orchestrator
	startTime    time.Time
}

func NewServer(cfg *config.Config, orchestrator domain.Orchestrator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:         e,
		config:       cfg,
		orchestrator: orchestrator,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%s", s.config.Host, s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
