package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fahad/etimad-monitor/internal/config"
)

// fakeLookupDriver extends the playback driver with the search-by-
// reference surface.
type fakeLookupDriver struct {
	fakeDriver

	cards     map[string]string // reference -> detail URL
	hints     map[string]string // reference -> listing deadline hint
	searchErr error
}

func (d *fakeLookupDriver) OpenListingForReference(string) error {
	return d.searchErr
}

func (d *fakeLookupDriver) FindCardByReference(ref string) (string, string, error) {
	url, ok := d.cards[ref]
	if !ok {
		return "", "", errors.New("no card matched")
	}
	return url, d.hints[ref], nil
}

func newTestLookup(drv lookupDriver) *Lookup {
	cfg := config.CrawlerConfig{ListingURL: "https://tenders.etimad.sa/Tender/AllTendersForVisitor"}
	l := NewLookup(&fakeBrowser{}, NewStaticFetcher(), cfg, NewPacer(nil), zerolog.Nop())
	l.newDriver = func(context.Context) lookupDriver { return drv }
	return l
}

func TestReferenceFromURL(t *testing.T) {
	require.Equal(t, "abc123",
		ReferenceFromURL("https://tenders.etimad.sa/Tender/DetailsForVisitor?TenderID=abc123"))
	require.Equal(t, "",
		ReferenceFromURL("https://tenders.etimad.sa/Tender/DetailsForVisitor"))
	require.Equal(t, "", ReferenceFromURL("://not a url"))
}

func TestIsPortalURL(t *testing.T) {
	require.True(t, IsPortalURL("https://tenders.etimad.sa/Tender/DetailsForVisitor?TenderID=x"))
	require.False(t, IsPortalURL("250639010039"))
	require.False(t, IsPortalURL("https://example.com/tender"))
}

func TestScrapeOneEmptyInput(t *testing.T) {
	l := newTestLookup(&fakeLookupDriver{})

	_, err := l.ScrapeOne("   ")
	var le *LookupError
	require.ErrorAs(t, err, &le)
}

func TestScrapeOneByReference(t *testing.T) {
	drv := &fakeLookupDriver{
		fakeDriver: fakeDriver{
			detailHTML: map[string]string{"u1": detailHTML("250639010039", "20/03/2026 10:00")},
			hasAward:   map[string]bool{},
		},
		cards: map[string]string{"250639010039": "u1"},
		hints: map[string]string{"250639010039": "2026-03-15 14:30"},
	}
	l := newTestLookup(drv)

	rec, err := l.ScrapeOne("250639010039")
	require.NoError(t, err)
	require.Equal(t, "250639010039", rec.ReferenceNumber)
	require.Equal(t, "u1", rec.CompetitionURL)
	// Listing hint wins over the detail-page deadline.
	require.Equal(t, "2026-03-15 14:30", rec.Deadline)
	require.Equal(t, AwardUnavailable, *rec.AwardedSupplier)
}

func TestScrapeOneReferenceNotFound(t *testing.T) {
	drv := &fakeLookupDriver{
		cards: map[string]string{},
	}
	l := newTestLookup(drv)

	_, err := l.ScrapeOne("999999999999")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	require.Contains(t, le.Message, "999999999999")
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTryStaticRejectsAsyncAwardContent(t *testing.T) {
	// The award tab is present but its panel fills in client-side; the
	// static markup alone cannot say anything about the award.
	srv := serveHTML(t, `<html><body><h2>تفاصيل المنافسة</h2>
		<div><span class="etd-item-title">الرقم المرجعي</span><span>250639010039</span></div>
		<button id="awardingStepTab">الترسية</button>
		<div id="awarding"></div>
	</body></html>`)
	l := newTestLookup(&fakeLookupDriver{})

	_, ok := l.tryStatic(srv.URL)
	require.False(t, ok)
}

func TestTryStaticServerRenderedAwardTable(t *testing.T) {
	srv := serveHTML(t, `<html><body><h2>تفاصيل المنافسة</h2>
		<div><span class="etd-item-title">الرقم المرجعي</span><span>250639010039</span></div>
		<button id="awardingStepTab">الترسية</button>
		<h4>قائمة الموردين المرسى عليهم</h4>
		<table><tbody><tr><td>شركة التقنية</td><td>-</td><td>1,500 ريال</td></tr></tbody></table>
	</body></html>`)
	l := newTestLookup(&fakeLookupDriver{})

	rec, ok := l.tryStatic(srv.URL)
	require.True(t, ok)
	require.Equal(t, "250639010039", rec.ReferenceNumber)
	require.Equal(t, "شركة التقنية", *rec.AwardedSupplier)
	require.Equal(t, 1500.0, *rec.AwardAmount)
}

func TestTryStaticNoAwardTabAtAll(t *testing.T) {
	srv := serveHTML(t, `<html><body><h2>تفاصيل المنافسة</h2>
		<div><span class="etd-item-title">الرقم المرجعي</span><span>250639010039</span></div>
	</body></html>`)
	l := newTestLookup(&fakeLookupDriver{})

	rec, ok := l.tryStatic(srv.URL)
	require.True(t, ok)
	require.Equal(t, AwardUnavailable, *rec.AwardedSupplier)
}

func TestTryStaticMissingReferenceFallsBack(t *testing.T) {
	srv := serveHTML(t, `<html><body><h2>صفحة تحويل</h2></body></html>`)
	l := newTestLookup(&fakeLookupDriver{})

	_, ok := l.tryStatic(srv.URL)
	require.False(t, ok)
}

func TestScrapeOneSearchFailure(t *testing.T) {
	drv := &fakeLookupDriver{searchErr: errors.New("portal down")}
	l := newTestLookup(drv)

	_, err := l.ScrapeOne("250639010039")
	var le *LookupError
	require.ErrorAs(t, err, &le)
}
