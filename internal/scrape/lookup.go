package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/config"
	"github.com/fahad/etimad-monitor/internal/models"
)

const portalPrefix = "https://tenders.etimad.sa"

// LookupError is what the API layer shows the waiting user. Message is
// human-readable; Err keeps the underlying cause for the logs.
type LookupError struct {
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LookupError) Unwrap() error { return e.Err }

func lookupErr(msg string, err error) *LookupError {
	return &LookupError{Message: msg, Err: err}
}

// lookupDriver is the tab surface the lookup flow needs beyond PageDriver.
type lookupDriver interface {
	PageDriver
	OpenListingForReference(ref string) error
	FindCardByReference(ref string) (detailURL, deadlineHint string, err error)
}

// Lookup serves single-tender on-demand scrapes for the API layer. It
// shares the browser process with the background cycle but always opens
// its own tab, so the two can run interleaved.
type Lookup struct {
	browser TabOpener
	fetcher *StaticFetcher
	cfg     config.CrawlerConfig
	pacer   Pacer
	log     zerolog.Logger

	// newDriver builds the tab driver; tests swap it out.
	newDriver func(tab context.Context) lookupDriver
}

func NewLookup(browser TabOpener, fetcher *StaticFetcher, cfg config.CrawlerConfig, pacer Pacer, log zerolog.Logger) *Lookup {
	l := &Lookup{browser: browser, fetcher: fetcher, cfg: cfg, pacer: pacer, log: log}
	return l
}

// ReferenceFromURL pulls the tender identifier out of a portal detail
// URL, empty when the URL carries none.
func ReferenceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("TenderID")
}

// IsPortalURL reports whether input is a link into the portal rather
// than a bare reference number.
func IsPortalURL(input string) bool {
	return strings.HasPrefix(input, portalPrefix)
}

// ScrapeOne fetches exactly one tender, given either a bare reference
// number or a fully-qualified detail URL. URLs try a static fetch first
// and fall back to the browser; reference numbers always need the
// search-and-filter browser flow.
func (l *Lookup) ScrapeOne(input string) (models.Tender, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.Tender{}, lookupErr("please provide a reference number or a competition URL", nil)
	}

	if IsPortalURL(input) {
		if rec, ok := l.tryStatic(input); ok {
			return rec, nil
		}
		return l.scrapeByURL(input)
	}
	return l.scrapeByReference(input)
}

// tryStatic attempts the cheap path: plain HTTP fetch plus extraction.
// Only trusted when the static markup yielded a reference number.
func (l *Lookup) tryStatic(detailURL string) (models.Tender, bool) {
	html, err := l.fetcher.FetchHTML(detailURL)
	if err != nil {
		l.log.Debug().Err(err).Msg("static fast path failed, using browser")
		return models.Tender{}, false
	}

	fields, err := ParseDetailPage(html)
	if err != nil || fields.ReferenceNumber == "" {
		l.log.Debug().Msg("static markup incomplete, using browser")
		return models.Tender{}, false
	}

	award, err := ParseAwardPanel(html)
	if err != nil {
		l.log.Debug().Err(err).Msg("static award markup unreadable, using browser")
		return models.Tender{}, false
	}
	// An award tab with no server-rendered results means the award content
	// loads asynchronously: only the browser flow can read it. Trusting the
	// static markup here would store the no-tab sentinel for a tender that
	// does have a tab.
	if award.Supplier == AwardUnavailable && HasAwardTab(html) {
		l.log.Debug().Msg("award content is async, using browser")
		return models.Tender{}, false
	}

	rec := mergeRecord(fields, ListingEntry{URL: detailURL})
	rec.AwardedSupplier = &award.Supplier
	rec.AwardAmount = award.Amount
	l.log.Info().Str("reference_number", rec.ReferenceNumber).Msg("tender scraped via static fast path")
	return rec, true
}

func (l *Lookup) scrapeByURL(detailURL string) (models.Tender, error) {
	drv, closeTab, err := l.openDriver()
	if err != nil {
		return models.Tender{}, err
	}
	defer closeTab()

	if err := drv.OpenDetail(detailURL); err != nil {
		return models.Tender{}, lookupErr("could not open the competition page", err)
	}
	return l.finishDetail(drv, detailURL, "")
}

func (l *Lookup) scrapeByReference(ref string) (models.Tender, error) {
	drv, closeTab, err := l.openDriver()
	if err != nil {
		return models.Tender{}, err
	}
	defer closeTab()

	if err := drv.OpenListingForReference(ref); err != nil {
		return models.Tender{}, lookupErr("could not search the tender listing", err)
	}

	detailURL, hint, err := drv.FindCardByReference(ref)
	if err != nil {
		return models.Tender{}, lookupErr(fmt.Sprintf("competition with reference number %s was not found", ref), err)
	}

	if err := drv.OpenDetail(detailURL); err != nil {
		return models.Tender{}, lookupErr("could not open the competition page", err)
	}
	return l.finishDetail(drv, detailURL, hint)
}

func (l *Lookup) finishDetail(drv lookupDriver, detailURL, deadlineHint string) (models.Tender, error) {
	html, err := drv.PageHTML()
	if err != nil {
		return models.Tender{}, lookupErr("could not read the competition page", err)
	}

	fields, err := ParseDetailPage(html)
	if err != nil {
		return models.Tender{}, lookupErr("could not parse the competition page", err)
	}

	rec := mergeRecord(fields, ListingEntry{URL: detailURL, DeadlineHint: deadlineHint})
	award := scrapeAward(drv, l.log)
	rec.AwardedSupplier = &award.Supplier
	rec.AwardAmount = award.Amount

	if rec.ReferenceNumber == "" {
		return rec, lookupErr("could not scrape the reference number; the competition might not exist", nil)
	}
	return rec, nil
}

func (l *Lookup) openDriver() (lookupDriver, func(), error) {
	tab, closeTab, err := l.browser.NewTab()
	if err != nil {
		return nil, nil, lookupErr("browser is unavailable", err)
	}
	if l.newDriver != nil {
		return l.newDriver(tab), func() { closeTab() }, nil
	}
	return NewNavigator(tab, l.cfg, l.pacer, l.log), func() { closeTab() }, nil
}
