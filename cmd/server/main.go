package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pulsecraft/reviewpulse/internal/amazon"
	"github.com/pulsecraft/reviewpulse/internal/config"
	"github.com/pulsecraft/reviewpulse/internal/logging"
	"github.com/pulsecraft/reviewpulse/internal/scrape"
	"github.com/pulsecraft/reviewpulse/internal/server"
	"github.com/pulsecraft/reviewpulse/internal/yelp"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, poller *scrape.Poller) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		poller.StopPolling()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	// One fetch attempt per cycle per source; the HTTP client timeout is the
	// only bound on how long that attempt may run.
	scraperHTTP := &http.Client{Timeout: cfg.ScraperTimeout}

	yelpScraper := yelp.NewClient(cfg.YelpAPIKey,
		yelp.WithHTTPClient(scraperHTTP),
		yelp.WithUserAgent(cfg.ScraperUserAgent),
	)
	amazonScraper := amazon.NewScraper(
		amazon.WithHTTPClient(scraperHTTP),
		amazon.WithUserAgent(cfg.ScraperUserAgent),
	)
	if cfg.YelpAPIKey == "" {
		slog.Warn("YELP_API_KEY not set, yelp falls back to HTML scraping")
	}

	aggregator := scrape.NewAggregator(clock, yelpScraper, amazonScraper)
	store := scrape.NewStore(aggregator.Sources(), clock)
	poller := scrape.NewPoller(aggregator, store, clock, cfg.StopGraceTimeout)

	srv := server.NewServer(cfg, poller)

	done := runGracefulShutdown(srv, poller)

	slog.Info("Server starting", "host", cfg.Host, "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
