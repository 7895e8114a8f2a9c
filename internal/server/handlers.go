package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pulsecraft/reviewpulse/internal/amazon"
	"github.com/pulsecraft/reviewpulse/internal/domain"
	apperrors "github.com/pulsecraft/reviewpulse/internal/errors"
	"github.com/pulsecraft/reviewpulse/internal/version"
	"github.com/pulsecraft/reviewpulse/internal/yelp"
)

// handleScrape runs one scrape cycle for the requested sources, optionally
// starting a background poll job when refresh_interval is given.
//
// Query parameters:
//   - yelp_url: Yelp business URL or ID
//   - amazon_url: Amazon product URL or ASIN
//   - refresh_interval: optional interval in seconds for continuous scraping
func (s *Server) handleScrape(c echo.Context) error {
	yelpInput := c.QueryParam("yelp_url")
	amazonInput := c.QueryParam("amazon_url")

	if yelpInput == "" && amazonInput == "" {
		return apperrors.ValidationError("please provide at least one URL parameter: yelp_url or amazon_url").
			WithField("example", "/scrape?yelp_url=https://www.yelp.com/biz/restaurant-name")
	}

	req := domain.ScrapeRequest{}
	if yelpInput != "" {
		req.Targets = append(req.Targets, domain.Target{Source: yelp.SourceName, Identifier: yelpInput})
	}
	if amazonInput != "" {
		req.Targets = append(req.Targets, domain.Target{Source: amazon.SourceName, Identifier: amazonInput})
	}

	interval, err := parseRefreshInterval(c.QueryParam("refresh_interval"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if interval > 0 {
		snap, err := s.orchestrator.StartPolling(ctx, req, interval)
		if err != nil {
			return scrapeError(err)
		}
		payload := snapshotPayload(snap)
		payload["background_scraping"] = true
		payload["refresh_interval"] = int(interval / time.Second)
		return c.JSON(200, payload)
	}

	snap, err := s.orchestrator.RunOnce(ctx, req)
	if err != nil {
		return scrapeError(err)
	}
	return c.JSON(200, snapshotPayload(snap))
}

// handleLatest returns the most recently completed snapshot; before any
// scrape has run this is the NoData snapshot.
func (s *Server) handleLatest(c echo.Context) error {
	return c.JSON(200, snapshotPayload(s.orchestrator.Latest()))
}

// handleStop cancels the background poll job if one is active. Idempotent.
func (s *Server) handleStop(c echo.Context) error {
	stopped := s.orchestrator.StopPolling()

	message := "no background scraping active"
	if stopped {
		message = "background scraping stopped"
	}
	return c.JSON(200, map[string]any{
		"stopped": stopped,
		"message": message,
	})
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"service":     "reviewpulse",
		"version":     version.Get(),
		"description": "review scraper for Yelp and Amazon with background polling",
		"endpoints": map[string]string{
			"health":  "/health - GET - health check",
			"metrics": "/metrics - GET - prometheus metrics",
			"scrape":  "/scrape - GET - scrape reviews (yelp_url, amazon_url, refresh_interval)",
			"latest":  "/latest - GET - latest scraped snapshot",
			"stop":    "/stop - POST - stop background scraping",
		},
	})
}

func parseRefreshInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationError("refresh_interval must be an integer number of seconds").
			WithField("refresh_interval", raw)
	}
	if seconds <= 0 {
		return 0, apperrors.ValidationError("refresh_interval must be greater than zero").
			WithField("refresh_interval", raw)
	}
	return time.Duration(seconds) * time.Second, nil
}

// scrapeError maps orchestrator errors onto the HTTP error taxonomy.
func scrapeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoTargets), errors.Is(err, domain.ErrIntervalNotPositive):
		return apperrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrUnknownSource):
		return apperrors.ValidationError(err.Error())
	default:
		return apperrors.InternalError("scrape failed", err)
	}
}

// handleHealth reports liveness. The service has no external backing stores,
// so there is nothing beyond the process itself to probe.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":    "healthy",
		"service":   "reviewpulse",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    fmt.Sprintf("%.0fs", time.Since(s.startTime).Seconds()),
	})
}
