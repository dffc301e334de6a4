package scrape

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/config"
)

// TabOpener hands out isolated browser tabs. Satisfied by
// browser.Controller.
type TabOpener interface {
	NewTab() (context.Context, context.CancelFunc, error)
}

// CycleStats are the totals of one full scrape pass.
type CycleStats struct {
	Pages      int
	ItemsSeen  int
	ItemsSaved int
}

// Scheduler repeatedly runs full scrape passes over all listing pages.
// Exactly one cycle runs at a time; an invocation while a cycle is in
// flight is a logged no-op. Whatever happens inside a run, the tab it
// opened is closed and the scheduler returns to idle.
type Scheduler struct {
	browser TabOpener
	scraper *Scraper
	pacer   Pacer
	cfg     config.CrawlerConfig
	log     zerolog.Logger

	running atomic.Bool

	// newDriver builds the page driver for a tab; tests swap it out.
	newDriver func(tab context.Context) PageDriver
}

func NewScheduler(browser TabOpener, scraper *Scraper, pacer Pacer, cfg config.CrawlerConfig, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		browser: browser,
		scraper: scraper,
		pacer:   pacer,
		cfg:     cfg,
		log:     log,
	}
	s.newDriver = func(tab context.Context) PageDriver {
		return NewNavigator(tab, cfg, pacer, log)
	}
	return s
}

// Start runs one pass immediately, then one per configured interval until
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.runLogged(ctx)

	ticker := time.NewTicker(s.cfg.CycleInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	stats, err := s.RunCycle(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("scrape cycle failed")
		return
	}
	s.log.Info().
		Int("pages", stats.Pages).
		Int("items_seen", stats.ItemsSeen).
		Int("items_saved", stats.ItemsSaved).
		Msg("scrape cycle completed")
}

// RunCycle performs one full pass: listing with filter, then every page
// until the portal reports no next page, with a long rest every
// PagesBeforeRest pages. Re-entrant invocations while running are no-ops.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("scrape cycle already running, skipping")
		return stats, nil
	}
	defer s.running.Store(false)

	tab, closeTab, err := s.browser.NewTab()
	if err != nil {
		return stats, err
	}
	defer closeTab()

	drv := s.newDriver(tab)
	if err := drv.OpenListing(); err != nil {
		return stats, err
	}

	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Pages++

		if reader, ok := drv.(interface{ SimulateReading() }); ok {
			reader.SimulateReading()
		}

		entries := drv.ListingEntries()
		if len(entries) == 0 {
			s.log.Warn().Int("page", stats.Pages).Msg("no tender cards on page, ending cycle")
			return stats, nil
		}
		stats.ItemsSeen += len(entries)
		stats.ItemsSaved += s.scraper.ScrapeBatch(ctx, drv, entries)

		if !drv.NextPage() {
			return stats, nil
		}

		if stats.Pages%s.cfg.PagesBeforeRest == 0 {
			rest := s.pacer.Rest()
			s.log.Info().Dur("rest", rest).Int("pages", stats.Pages).Msg("taking a rest")
			sleep(ctx, rest)
		} else {
			sleep(ctx, s.pacer.Jitter(s.cfg.PageDelay()))
		}
	}
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}
