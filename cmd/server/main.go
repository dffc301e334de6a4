package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fahad/etimad-monitor/internal/api"
	"github.com/fahad/etimad-monitor/internal/auth"
	"github.com/fahad/etimad-monitor/internal/browser"
	"github.com/fahad/etimad-monitor/internal/config"
	"github.com/fahad/etimad-monitor/internal/db"
	"github.com/fahad/etimad-monitor/internal/logger"
	"github.com/fahad/etimad-monitor/internal/scrape"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	store := db.NewStore(pool, log)
	authService := auth.NewService(pool)

	ctrl := browser.NewController(log, cfg.Crawler.Headless)
	defer ctrl.Shutdown()

	pacer := scrape.NewPacer(cfg.Crawler.RestMinutes)
	scraper := scrape.NewScraper(store, pacer, cfg.Crawler.ItemDelay(), log)
	scheduler := scrape.NewScheduler(ctrl, scraper, pacer, cfg.Crawler, log)
	lookup := scrape.NewLookup(ctrl, scrape.NewStaticFetcher(), cfg.Crawler, pacer, log)

	schedDone := make(chan struct{})
	if cfg.Crawler.StartupCycleEnabled {
		go func() {
			defer close(schedDone)
			scheduler.Start(ctx)
		}()
	} else {
		close(schedDone)
		log.Info().Msg("background scrape cycle disabled; use POST /api/scrape-cycle to run one")
	}

	srv := api.NewServer(store, authService, lookup, scheduler, &cfg, log)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Let an in-flight cycle step finish before the browser goes away, so
	// it ends on ctx cancellation instead of dead-browser errors.
	select {
	case <-schedDone:
	case <-time.After(15 * time.Second):
		log.Warn().Msg("scrape cycle did not stop in time, closing browser anyway")
	}
}
