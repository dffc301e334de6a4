package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fahad/etimad-monitor/internal/models"
	"github.com/fahad/etimad-monitor/internal/scrape"
)

func (s *Server) handleListCompetitions(c echo.Context) error {
	tenders, err := s.Store.ListCompetitions(c.Request().Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing competitions failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, tenders)
}

func (s *Server) handleListScraped(c echo.Context) error {
	tenders, err := s.Store.ListScraped(c.Request().Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing scraped competitions failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, tenders)
}

func (s *Server) handleCreateCompetition(c echo.Context) error {
	var t models.Tender
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(t.ReferenceNumber) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "referenceNumber is required"})
	}

	saved, err := s.Store.InsertCompetition(c.Request().Context(), t)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return c.JSON(http.StatusConflict, map[string]string{"error": "A competition with this reference number already exists"})
		}
		s.log.Error().Err(err).Msg("inserting competition failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleUpdateCompetition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid competition ID"})
	}

	var t models.Tender
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(t.ReferenceNumber) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "referenceNumber is required"})
	}

	saved, err := s.Store.UpdateCompetition(c.Request().Context(), id, t)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Competition not found"})
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id.String()).Msg("updating competition failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleDeleteCompetition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid competition ID"})
	}

	err = s.Store.DeleteCompetition(c.Request().Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Competition not found"})
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id.String()).Msg("deleting competition failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Competition deleted"})
}

type searchRequest struct {
	Query string `json:"query"`
}

// resolveReference extracts the reference number to check in the DB. A
// portal URL carries it in the TenderID query parameter; anything else is
// treated as a reference number typed directly.
func resolveReference(query string) string {
	if scrape.IsPortalURL(query) {
		return scrape.ReferenceFromURL(query)
	}
	return query
}

// handleSearchCompetition answers from the saved tables when it can and
// falls back to a live portal scrape. Live results land in the scrape
// cache, never in the authoritative table.
func (s *Server) handleSearchCompetition(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	ctx := c.Request().Context()
	if ref := resolveReference(query); ref != "" {
		found, source, err := s.Store.FindByReference(ctx, ref)
		if err != nil {
			s.log.Error().Err(err).Str("reference_number", ref).Msg("reference lookup failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		}
		if found != nil {
			found.Source = source
			if source == models.SourceExisting {
				found.Message = "This competition is already saved"
			} else {
				found.Message = "Found in previously scraped data"
			}
			return c.JSON(http.StatusOK, found)
		}
	}

	tender, err := s.scrapeLive(ctx, query)
	if err != nil {
		var le *scrape.LookupError
		if errors.As(err, &le) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": le.Message})
		}
		s.log.Error().Err(err).Str("query", query).Msg("live scrape failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Could not reach the Etimad portal"})
	}

	tender.Source = models.SourceNewlyScraped
	tender.Message = "Scraped live from Etimad"
	return c.JSON(http.StatusOK, &tender)
}

// handleScrapeAndSave is the search flow plus a write into the
// authoritative table.
func (s *Server) handleScrapeAndSave(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	ctx := c.Request().Context()
	var tender *models.Tender

	if ref := resolveReference(query); ref != "" {
		found, source, err := s.Store.FindByReference(ctx, ref)
		if err != nil {
			s.log.Error().Err(err).Str("reference_number", ref).Msg("reference lookup failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		}
		if found != nil && source == models.SourceExisting {
			found.Source = source
			found.Message = "This competition is already saved"
			return c.JSON(http.StatusOK, found)
		}
		tender = found
	}

	if tender == nil {
		scraped, err := s.scrapeLive(ctx, query)
		if err != nil {
			var le *scrape.LookupError
			if errors.As(err, &le) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": le.Message})
			}
			s.log.Error().Err(err).Str("query", query).Msg("live scrape failed")
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "Could not reach the Etimad portal"})
		}
		tender = &scraped
	}

	saved, err := s.Store.PromoteToCompetitions(ctx, *tender)
	if err != nil {
		s.log.Error().Err(err).Str("reference_number", tender.ReferenceNumber).Msg("saving scraped competition failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	saved.Message = "Competition scraped and saved"
	return c.JSON(http.StatusCreated, saved)
}

// scrapeLive runs the on-demand lookup and mirrors the result into the
// scrape cache so repeat searches answer without a browser.
func (s *Server) scrapeLive(ctx context.Context, query string) (models.Tender, error) {
	tender, err := s.Lookup.ScrapeOne(query)
	if err != nil {
		return models.Tender{}, err
	}
	s.Store.UpsertScraped(ctx, tender)
	return tender, nil
}

// handleTriggerCycle kicks off a full listing crawl in the background.
func (s *Server) handleTriggerCycle(c echo.Context) error {
	if s.Cycle.Running() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "A scrape cycle is already running"})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
		defer cancel()
		stats, err := s.Cycle.RunCycle(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("triggered scrape cycle failed")
			return
		}
		s.log.Info().
			Int("pages", stats.Pages).
			Int("items_seen", stats.ItemsSeen).
			Int("items_saved", stats.ItemsSaved).
			Msg("triggered scrape cycle finished")
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"message": "Scrape cycle started"})
}
