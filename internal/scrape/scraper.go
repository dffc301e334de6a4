package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/models"
)

// Gateway is the persistence boundary the scraper writes through. Upserts
// are keyed on reference number and never fail loudly: storage errors are
// logged inside the gateway and reported as false.
type Gateway interface {
	UpsertScraped(ctx context.Context, t models.Tender) bool
}

// Scraper runs the per-entry pipeline: open the detail page, extract
// labeled fields, reveal and read the award panel, merge, persist. A
// failing entry is logged and skipped; it never stops the batch.
type Scraper struct {
	gateway   Gateway
	pacer     Pacer
	itemDelay time.Duration
	log       zerolog.Logger
}

func NewScraper(gateway Gateway, pacer Pacer, itemDelay time.Duration, log zerolog.Logger) *Scraper {
	return &Scraper{
		gateway:   gateway,
		pacer:     pacer,
		itemDelay: itemDelay,
		log:       log,
	}
}

// ScrapeEntry turns one listing entry into a full record. The listing
// deadline hint wins over the detail-page deadline; the latter is only a
// fallback.
func (s *Scraper) ScrapeEntry(drv PageDriver, e ListingEntry) (models.Tender, error) {
	if err := drv.OpenDetail(e.URL); err != nil {
		return models.Tender{}, err
	}

	html, err := drv.PageHTML()
	if err != nil {
		return models.Tender{}, err
	}

	fields, err := ParseDetailPage(html)
	if err != nil {
		return models.Tender{}, fmt.Errorf("parsing detail page: %w", err)
	}

	rec := mergeRecord(fields, e)
	award := scrapeAward(drv, s.log)
	rec.AwardedSupplier = &award.Supplier
	rec.AwardAmount = award.Amount

	if rec.ReferenceNumber == "" {
		return rec, fmt.Errorf("detail page yielded no reference number")
	}
	return rec, nil
}

// scrapeAward maps every failure mode of the award step to its sentinel
// so callers never abort here: no tab means results are unpublished,
// anything broken means fetch error.
func scrapeAward(drv PageDriver, log zerolog.Logger) (res AwardResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("award extraction panicked")
			res = AwardResult{Supplier: AwardFetchError}
		}
	}()

	if !drv.OpenAwardPanel() {
		return AwardResult{Supplier: AwardUnavailable}
	}

	html, err := drv.PageHTML()
	if err != nil {
		log.Warn().Err(err).Msg("could not read award panel html")
		return AwardResult{Supplier: AwardFetchError}
	}

	res, err = ParseAwardPanel(html)
	if err != nil {
		log.Warn().Err(err).Msg("award panel parse failed")
		return AwardResult{Supplier: AwardFetchError}
	}
	return res
}

// ScrapeBatch processes every entry of one listing page, isolating each
// entry's failure, and returns how many records were persisted. The
// inter-item delay is skipped after the last entry.
func (s *Scraper) ScrapeBatch(ctx context.Context, drv PageDriver, entries []ListingEntry) int {
	saved := 0
	for i, e := range entries {
		rec, err := s.ScrapeEntry(drv, e)
		if err != nil {
			s.log.Warn().Err(err).Str("reference_number", e.ReferenceNumber).Msg("entry failed, skipping")
		} else if s.gateway.UpsertScraped(ctx, rec) {
			saved++
			s.log.Info().Str("reference_number", rec.ReferenceNumber).Msg("tender saved")
		}

		if i < len(entries)-1 {
			sleep(ctx, s.pacer.Jitter(s.itemDelay))
		}
	}
	return saved
}

func mergeRecord(f DetailFields, e ListingEntry) models.Tender {
	deadline := e.DeadlineHint
	if deadline == "" {
		deadline = CanonicalizeDeadline(f.DeadlineRaw)
	}

	ref := f.ReferenceNumber
	if ref == "" {
		ref = e.ReferenceNumber
	}

	return models.Tender{
		Name:               f.Name,
		ReferenceNumber:    ref,
		BrochureCost:       f.BrochureCost,
		CompetitionType:    f.CompetitionType,
		ContractDuration:   f.ContractDuration,
		GovernmentEntity:   f.GovernmentEntity,
		EtimadStatus:       f.EtimadStatus,
		SubmissionMethod:   f.SubmissionMethod,
		Deadline:           deadline,
		CompetitionURL:     e.URL,
		CompetitionPurpose: f.CompetitionPurpose,
		GuaranteeRequired:  f.GuaranteeRequired,
	}
}
