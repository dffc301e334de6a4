package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Controller owns the single shared Chrome process. It is created once at
// startup, launched lazily on the first tab request, reused by every scrape
// cycle and on-demand lookup, and shut down exactly once on process exit.
type Controller struct {
	headless bool
	log      zerolog.Logger

	mu           sync.Mutex
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	browserCtx   context.Context
	browserStop  context.CancelFunc
	launched     bool
	shuttingDown bool
}

func NewController(log zerolog.Logger, headless bool) *Controller {
	return &Controller{headless: headless, log: log}
}

// ensureLocked launches the browser process if it is not already running.
// Callers must hold c.mu.
func (c *Controller) ensureLocked() error {
	if c.shuttingDown {
		return fmt.Errorf("browser controller is shutting down")
	}
	if c.launched {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		// Listing and detail pages render fine without assets; skipping
		// them keeps page loads fast and traffic low.
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)

	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	c.browserCtx, c.browserStop = chromedp.NewContext(c.allocCtx)

	// Run with no actions forces the process to start now, so a launch
	// failure surfaces here instead of inside the first navigation.
	if err := chromedp.Run(c.browserCtx); err != nil {
		c.browserStop()
		c.allocCancel()
		c.launched = false
		c.browserCtx = nil
		return fmt.Errorf("launching chrome: %w", err)
	}

	c.log.Info().Bool("headless", c.headless).Msg("browser launched")
	c.launched = true
	return nil
}

// NewTab opens an isolated tab in the shared browser, launching the
// browser first if needed. The returned cancel closes only the tab; the
// caller must invoke it on every exit path.
func (c *Controller) NewTab() (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(); err != nil {
		return nil, nil, err
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	return tabCtx, cancel, nil
}

// Shutdown closes the shared browser process. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuttingDown {
		return
	}
	c.shuttingDown = true

	if c.launched {
		// Cancel the browser context first so Chrome exits cleanly before
		// the allocator tears down its temp dirs.
		if err := chromedp.Cancel(c.browserCtx); err != nil {
			c.log.Warn().Err(err).Msg("browser did not close cleanly")
		}
		c.allocCancel()
		c.launched = false
		c.log.Info().Msg("browser closed")
	}
}
