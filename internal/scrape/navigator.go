package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/config"
)

// PageDriver is what the scraper and scheduler need from a browser tab.
// Navigator implements it against a live tab; tests substitute fakes.
type PageDriver interface {
	OpenListing() error
	ListingEntries() []ListingEntry
	NextPage() bool
	OpenDetail(url string) error
	OpenAwardPanel() bool
	PageHTML() (string, error)
}

// Navigator drives a single browser tab through the portal's UI flow.
// Callers never touch selectors or markup. Every operation recovers from
// its own timeouts and missing elements; only a dead browser propagates.
type Navigator struct {
	tab   context.Context
	cfg   config.CrawlerConfig
	pacer Pacer
	log   zerolog.Logger
}

func NewNavigator(tab context.Context, cfg config.CrawlerConfig, pacer Pacer, log zerolog.Logger) *Navigator {
	return &Navigator{tab: tab, cfg: cfg, pacer: pacer, log: log}
}

func (n *Navigator) step(timeout func() (context.Context, context.CancelFunc), actions ...chromedp.Action) error {
	ctx, cancel := timeout()
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (n *Navigator) navTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(n.tab, n.cfg.NavTimeout())
}

func (n *Navigator) stepTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(n.tab, n.cfg.StepTimeout())
}

// OpenListing loads the tender-listing view and applies the "any time"
// publication-date filter through the site's own search panel. A filter
// failure is recoverable: the default listing still renders and the run
// proceeds unfiltered.
func (n *Navigator) OpenListing() error {
	return n.openListing("")
}

// OpenListingForReference is the lookup variant: same flow, with the
// reference number typed into the search panel before submitting.
func (n *Navigator) OpenListingForReference(ref string) error {
	return n.openListing(ref)
}

func (n *Navigator) openListing(ref string) error {
	if err := n.step(n.navTimeout, chromedp.Navigate(n.cfg.ListingURL)); err != nil {
		return fmt.Errorf("opening listing page: %w", err)
	}

	if err := n.applyAnyTimeFilter(ref); err != nil {
		n.log.Warn().Err(err).Msg("date filter failed, continuing with default results")
	}

	if err := n.step(n.navTimeout, chromedp.WaitVisible(selTenderCard, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for listing entries: %w", err)
	}
	return nil
}

// applyAnyTimeFilter walks the collapsed search panel: open it, switch to
// the dates tab, pick "any time", optionally type a reference number, and
// submit.
func (n *Navigator) applyAnyTimeFilter(ref string) error {
	if err := n.step(n.stepTimeout,
		chromedp.WaitVisible(selSearchCollapse, chromedp.ByQuery),
		chromedp.Click(selSearchCollapse, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("opening search panel: %w", err)
	}

	// The dates tab anchor is not always clickable through input events;
	// the portal toggles it via its own JS handler.
	if err := n.step(n.stepTimeout,
		chromedp.WaitReady(selDatesTab, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('`+selDatesTab+`').click()`, nil),
	); err != nil {
		return fmt.Errorf("opening dates tab: %w", err)
	}

	if err := n.step(n.stepTimeout,
		chromedp.WaitVisible(selPublishDate, chromedp.ByQuery),
		chromedp.SetValue(selPublishDate, anyTimeOptionValue, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("selecting any-time option: %w", err)
	}

	if ref != "" {
		if err := n.step(n.stepTimeout,
			chromedp.WaitVisible(selReferenceInput, chromedp.ByQuery),
			chromedp.SendKeys(selReferenceInput, ref, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("typing reference number: %w", err)
		}
	}

	if err := n.step(n.stepTimeout,
		chromedp.WaitVisible(selSearchSubmit, chromedp.ByQuery),
		chromedp.Click(selSearchSubmit, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submitting search: %w", err)
	}
	return nil
}

// ListingEntries reads the current page's rendered tender cards. Failures
// and empty pages both yield an empty slice.
func (n *Navigator) ListingEntries() []ListingEntry {
	html, err := n.PageHTML()
	if err != nil {
		n.log.Warn().Err(err).Msg("could not read listing page html")
		return nil
	}
	return ParseListingEntries(html, n.cfg.ListingURL)
}

// NextPage activates the pagination "next" control when it is present and
// enabled, then waits for the new page to render. Returns false, with no
// side effects, at end of results.
func (n *Navigator) NextPage() bool {
	var clicked bool
	if err := n.step(n.stepTimeout, chromedp.Evaluate(nextPageJS, &clicked)); err != nil {
		n.log.Warn().Err(err).Msg("next-page probe failed, treating as last page")
		return false
	}
	if !clicked {
		return false
	}

	if err := n.step(n.navTimeout, chromedp.WaitVisible(selTenderCard, chromedp.ByQuery)); err != nil {
		n.log.Warn().Err(err).Msg("next page did not render, treating as last page")
		return false
	}
	return true
}

// OpenDetail navigates to a tender's detail page and waits for the
// detail-view marker, so a redirect or error page is reported as a
// per-item failure instead of being scraped.
func (n *Navigator) OpenDetail(url string) error {
	if err := n.step(n.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitVisible(detailMarkerXPath, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("opening detail page: %w", err)
	}
	return nil
}

// OpenAwardPanel reveals the award-results tab when the detail page has
// one and gives its async content a moment to load. A missing tab is not
// an error: it means results are not published via this UI path.
func (n *Navigator) OpenAwardPanel() bool {
	var exists bool
	if err := n.step(n.stepTimeout,
		chromedp.Evaluate(`document.querySelector('`+selAwardTab+`') !== null`, &exists),
	); err != nil {
		n.log.Warn().Err(err).Msg("award tab probe failed")
		return false
	}
	if !exists {
		return false
	}

	if err := n.step(n.stepTimeout, chromedp.Click(selAwardTab, chromedp.ByQuery)); err != nil {
		n.log.Warn().Err(err).Msg("award tab click failed")
		return false
	}
	sleep(n.tab, n.cfg.AwardWait())
	return true
}

// PageHTML snapshots the rendered document for the extraction engine.
func (n *Navigator) PageHTML() (string, error) {
	var html string
	if err := n.step(n.stepTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page html: %w", err)
	}
	return html, nil
}

// SimulateReading scrolls through the page the way a person skims it,
// with jittered pauses between scroll steps.
func (n *Navigator) SimulateReading() {
	for i := 0; i < 3; i++ {
		if err := n.step(n.stepTimeout,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 0.7)`, nil),
		); err != nil {
			return
		}
		sleep(n.tab, n.pacer.Between(400*msec, 1600*msec))
	}
}

// FindCardByReference locates the listing card carrying ref on the
// current (already searched) listing page and returns its details URL and
// the card's deadline hint.
func (n *Navigator) FindCardByReference(ref string) (detailURL, deadlineHint string, err error) {
	html, err := n.PageHTML()
	if err != nil {
		return "", "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}

	var found bool
	doc.Find(selTenderCard).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if !strings.Contains(card.Text(), ref) {
			return true
		}
		href, ok := card.Find(selDetailsLink).First().Attr("href")
		if !ok {
			return true
		}
		detailURL = resolveURL(n.cfg.ListingURL, href)
		deadlineHint = ListingDeadlineHint(card.Text())
		found = true
		return false
	})

	if !found {
		return "", "", fmt.Errorf("competition %s not found on the listing page", ref)
	}
	return detailURL, deadlineHint, nil
}
