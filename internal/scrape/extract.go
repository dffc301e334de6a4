package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DetailFields is the raw result of reading a detail page's labeled
// fields. Deadline stays unparsed here; merging against the listing-page
// hint happens in the scraper.
type DetailFields struct {
	Name               string
	ReferenceNumber    string
	CompetitionType    string
	ContractDuration   string
	GovernmentEntity   string
	EtimadStatus       string
	SubmissionMethod   string
	CompetitionPurpose string
	GuaranteeRequired  string
	BrochureCost       float64
	DeadlineRaw        string // detail-page form, "DD/MM/YYYY HH:MM"
}

// AwardResult is the outcome of the award-panel step. Supplier is either a
// real name or one of the Award* sentinels.
type AwardResult struct {
	Supplier string
	Amount   *float64
}

// ListingEntry is one card on a listing page.
type ListingEntry struct {
	URL             string
	ReferenceNumber string
	DeadlineHint    string // "YYYY-MM-DD HH:MM" when the card shows one
}

var (
	moneyCleanRe     = regexp.MustCompile(`[^0-9.]`)
	amountRe         = regexp.MustCompile(`[\d.,]+`)
	detailDeadlineRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4}) (\d{2}):(\d{2})`)
	listingRefRe     = regexp.MustCompile(`الرقم المرجع[يى]\s*:?\s*([0-9][0-9/-]*)`)
	listingDeadlineRe = regexp.MustCompile(`آخر موعد لتقديم العروض\s*(\d{4}-\d{2}-\d{2})\s*(\d{2}:\d{2})`)
)

// labelElements is where the portal renders field labels. Values sit in
// the following sibling, or share the label's container.
const labelElements = ".etd-item-title, .label, h3, span, p"

// ParseDetailPage maps the detail page's labeled Arabic fields onto a
// DetailFields. A missing label yields the zero value for that field,
// never an error.
func ParseDetailPage(html string) (DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DetailFields{}, err
	}

	f := DetailFields{
		Name:               extractField(doc, labelName),
		ReferenceNumber:    extractField(doc, labelReferenceNumber),
		CompetitionType:    extractField(doc, labelCompetitionType),
		ContractDuration:   extractField(doc, labelContractDuration),
		GovernmentEntity:   extractField(doc, labelGovernmentEntity),
		EtimadStatus:       extractField(doc, labelEtimadStatus),
		SubmissionMethod:   extractField(doc, labelSubmission),
		CompetitionPurpose: extractField(doc, labelPurpose),
		GuaranteeRequired:  extractField(doc, labelGuarantee),
		DeadlineRaw:        extractField(doc, labelDeadline),
	}
	f.BrochureCost = ParseMoney(extractField(doc, labelBrochureCost))

	if f.Name == "" {
		f.Name = strings.TrimSpace(doc.Find("h2").First().Text())
	}
	return f, nil
}

// extractField finds the first label-bearing element containing label and
// returns its value: the next sibling's text when non-empty, otherwise the
// enclosing container's text with the label stripped. Empty string when
// the label does not appear.
func extractField(doc *goquery.Document, label string) string {
	var value string
	doc.Find(labelElements).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), label) {
			return true
		}
		if sib := strings.TrimSpace(s.Next().Text()); sib != "" {
			value = sib
			return false
		}
		parent := s.Parent()
		if parent.Length() > 0 && strings.Contains(parent.Text(), label) {
			value = strings.TrimSpace(strings.Replace(parent.Text(), label, "", 1))
			return false
		}
		return false
	})
	return value
}

// ParseMoney strips currency symbols, separators and whitespace and parses
// what remains. Anything unparsable is 0, never an error.
func ParseMoney(s string) float64 {
	clean := moneyCleanRe.ReplaceAllString(s, "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// CanonicalizeDeadline reparses a detail-page "DD/MM/YYYY HH:MM" string
// into the canonical "YYYY-MM-DD HH:MM" form. Empty string when no valid
// date is present.
func CanonicalizeDeadline(raw string) string {
	m := detailDeadlineRe.FindString(raw)
	if m == "" {
		return ""
	}
	t, err := time.Parse("02/01/2006 15:04", m)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// ParseAwardPanel reads the opened award panel. Lookup order: the awarded
// suppliers table under its header, then the "results not yet announced"
// phrase, then the unavailable sentinel.
func ParseAwardPanel(html string) (AwardResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return AwardResult{}, err
	}

	var header *goquery.Selection
	doc.Find("h4").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), awardHeaderPhrase) {
			header = s
			return false
		}
		return true
	})

	if header != nil {
		table := header.NextAllFiltered("table").First()
		cells := table.Find("tbody tr").First().Find("td")
		if cells.Length() >= 3 {
			res := AwardResult{Supplier: strings.TrimSpace(cells.Eq(0).Text())}
			raw := amountRe.FindString(cells.Eq(2).Text())
			clean := strings.ReplaceAll(raw, ",", "")
			if v, err := strconv.ParseFloat(clean, 64); err == nil && v >= 0 {
				res.Amount = &v
			}
			return res, nil
		}
		// Header without a populated table reads the same as no results.
		return AwardResult{Supplier: AwardNotAnnounced}, nil
	}

	if strings.Contains(doc.Find("body").Text(), AwardNotAnnounced) {
		return AwardResult{Supplier: AwardNotAnnounced}, nil
	}
	return AwardResult{Supplier: AwardUnavailable}, nil
}

// HasAwardTab reports whether the markup carries the award-results tab.
func HasAwardTab(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(selAwardTab).Length() > 0
}

// ParseListingEntries reads the tender cards off a rendered listing page.
// Cards missing a details link or a reference number are dropped. No
// cards is an empty slice, not an error.
func ParseListingEntries(html, baseURL string) []ListingEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var entries []ListingEntry
	doc.Find(selTenderCard).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(selDetailsLink).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		text := card.Text()
		refMatch := listingRefRe.FindStringSubmatch(text)
		if refMatch == nil {
			return
		}

		// The capture is greedy over / and -, so a number that runs into
		// punctuation drags the separator along.
		entry := ListingEntry{
			URL:             resolveURL(baseURL, href),
			ReferenceNumber: strings.TrimRight(strings.TrimSpace(refMatch[1]), "/-"),
		}
		if m := listingDeadlineRe.FindStringSubmatch(text); m != nil {
			entry.DeadlineHint = m[1] + " " + m[2]
		}
		entries = append(entries, entry)
	})
	return entries
}

// ListingDeadlineHint extracts the canonical deadline shown on a listing
// card, or "" when the card does not carry one.
func ListingDeadlineHint(cardText string) string {
	if m := listingDeadlineRe.FindStringSubmatch(cardText); m != nil {
		return m[1] + " " + m[2]
	}
	return ""
}

func resolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}
