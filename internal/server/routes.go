package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Service index
	s.echo.GET("/", s.handleRoot)

	// Scrape surface
	s.echo.GET("/scrape", s.handleScrape)
	s.echo.GET("/latest", s.handleLatest)
	s.echo.POST("/stop", s.handleStop)
}
