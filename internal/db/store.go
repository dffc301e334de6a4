package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/fahad/etimad-monitor/internal/models"
)

// Store is the persistence gateway over the two tender tables: the
// authoritative `competitions` table the users curate, and the
// `scraped_competitions` cache the background cycle fills.
type Store struct {
	pool     *pgxpool.Pool
	log      zerolog.Logger
	sanitize *bluemonday.Policy
}

func NewStore(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{
		pool:     pool,
		log:      log,
		sanitize: bluemonday.StrictPolicy(),
	}
}

const tenderCols = `id, name, reference_number, brochure_cost, competition_type,
	contract_duration, government_entity, etimad_status, submission_method,
	deadline, competition_url, competition_purpose, guarantee_required,
	awarded_supplier, award_amount`

func scanTender(scan func(dest ...any) error) (models.Tender, error) {
	var t models.Tender
	var name, compType, duration, entity, status, method *string
	var deadline, compURL, purpose, guarantee *string

	err := scan(
		&t.ID, &name, &t.ReferenceNumber, &t.BrochureCost, &compType,
		&duration, &entity, &status, &method,
		&deadline, &compURL, &purpose, &guarantee,
		&t.AwardedSupplier, &t.AwardAmount,
	)
	if err != nil {
		return t, err
	}

	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&t.Name, name)
	assign(&t.CompetitionType, compType)
	assign(&t.ContractDuration, duration)
	assign(&t.GovernmentEntity, entity)
	assign(&t.EtimadStatus, status)
	assign(&t.SubmissionMethod, method)
	assign(&t.Deadline, deadline)
	assign(&t.CompetitionURL, compURL)
	assign(&t.CompetitionPurpose, purpose)
	assign(&t.GuaranteeRequired, guarantee)
	return t, nil
}

// cleanTender strips any markup the extraction step dragged along. Award
// sentinels are plain text and pass through untouched.
func (s *Store) cleanTender(t models.Tender) models.Tender {
	clean := func(v string) string {
		return strings.TrimSpace(s.sanitize.Sanitize(v))
	}
	t.Name = clean(t.Name)
	t.CompetitionType = clean(t.CompetitionType)
	t.ContractDuration = clean(t.ContractDuration)
	t.GovernmentEntity = clean(t.GovernmentEntity)
	t.EtimadStatus = clean(t.EtimadStatus)
	t.SubmissionMethod = clean(t.SubmissionMethod)
	t.CompetitionPurpose = clean(t.CompetitionPurpose)
	t.GuaranteeRequired = clean(t.GuaranteeRequired)
	if t.AwardedSupplier != nil {
		v := clean(*t.AwardedSupplier)
		t.AwardedSupplier = &v
	}
	return t
}

// UpsertScraped writes a background-scraped record into the cache table,
// keyed on reference number. Storage errors never reach the scraper:
// they are logged here and reported as false.
func (s *Store) UpsertScraped(ctx context.Context, t models.Tender) bool {
	if t.ReferenceNumber == "" {
		s.log.Warn().Msg("refusing to upsert tender without reference number")
		return false
	}
	t = s.cleanTender(t)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO scraped_competitions (
			name, reference_number, brochure_cost, competition_type,
			contract_duration, government_entity, etimad_status, submission_method,
			deadline, competition_url, competition_purpose, guarantee_required,
			awarded_supplier, award_amount, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (reference_number) DO UPDATE SET
			name = EXCLUDED.name,
			brochure_cost = EXCLUDED.brochure_cost,
			competition_type = COALESCE(EXCLUDED.competition_type, scraped_competitions.competition_type),
			contract_duration = COALESCE(EXCLUDED.contract_duration, scraped_competitions.contract_duration),
			government_entity = COALESCE(EXCLUDED.government_entity, scraped_competitions.government_entity),
			etimad_status = COALESCE(EXCLUDED.etimad_status, scraped_competitions.etimad_status),
			submission_method = COALESCE(EXCLUDED.submission_method, scraped_competitions.submission_method),
			deadline = COALESCE(EXCLUDED.deadline, scraped_competitions.deadline),
			competition_url = COALESCE(EXCLUDED.competition_url, scraped_competitions.competition_url),
			competition_purpose = COALESCE(EXCLUDED.competition_purpose, scraped_competitions.competition_purpose),
			guarantee_required = COALESCE(EXCLUDED.guarantee_required, scraped_competitions.guarantee_required),
			awarded_supplier = COALESCE(EXCLUDED.awarded_supplier, scraped_competitions.awarded_supplier),
			award_amount = COALESCE(EXCLUDED.award_amount, scraped_competitions.award_amount),
			scraped_at = NOW()
	`,
		nilIfEmpty(t.Name), t.ReferenceNumber, t.BrochureCost, nilIfEmpty(t.CompetitionType),
		nilIfEmpty(t.ContractDuration), nilIfEmpty(t.GovernmentEntity), nilIfEmpty(t.EtimadStatus), nilIfEmpty(t.SubmissionMethod),
		nilIfEmpty(t.Deadline), nilIfEmpty(t.CompetitionURL), nilIfEmpty(t.CompetitionPurpose), nilIfEmpty(t.GuaranteeRequired),
		t.AwardedSupplier, t.AwardAmount,
	)
	if err != nil {
		s.log.Error().Err(err).Str("reference_number", t.ReferenceNumber).Msg("upsert into scrape cache failed")
		return false
	}
	return true
}

// FindByReference looks a tender up in order: authoritative table, then
// scrape cache. The provenance tag tells the caller which one answered.
func (s *Store) FindByReference(ctx context.Context, ref string) (*models.Tender, string, error) {
	t, err := s.GetCompetitionByReference(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if t != nil {
		return t, models.SourceExisting, nil
	}

	t, err = s.GetScrapedByReference(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	if t != nil {
		return t, models.SourceScrapedPreview, nil
	}
	return nil, "", nil
}

func (s *Store) GetCompetitionByReference(ctx context.Context, ref string) (*models.Tender, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+tenderCols+", date_added FROM competitions WHERE reference_number = $1", ref)
	return s.getOne(row, true)
}

func (s *Store) GetScrapedByReference(ctx context.Context, ref string) (*models.Tender, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+tenderCols+", scraped_at FROM scraped_competitions WHERE reference_number = $1", ref)
	return s.getOne(row, false)
}

func (s *Store) getOne(row pgx.Row, authoritative bool) (*models.Tender, error) {
	t, err := scanTenderWithTime(row, authoritative)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTenderWithTime(row pgx.Row, authoritative bool) (models.Tender, error) {
	var ts *time.Time
	t, err := scanTender(func(dest ...any) error {
		return row.Scan(append(dest, &ts)...)
	})
	if err != nil {
		return t, err
	}
	if authoritative {
		t.DateAdded = ts
	} else {
		t.ScrapedAt = ts
	}
	return t, nil
}

func (s *Store) ListCompetitions(ctx context.Context) ([]models.Tender, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+tenderCols+", date_added FROM competitions ORDER BY date_added DESC")
	if err != nil {
		return nil, fmt.Errorf("listing competitions: %w", err)
	}
	defer rows.Close()
	return collectTenders(rows, true)
}

func (s *Store) ListScraped(ctx context.Context) ([]models.Tender, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+tenderCols+", scraped_at FROM scraped_competitions ORDER BY scraped_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing scraped competitions: %w", err)
	}
	defer rows.Close()
	return collectTenders(rows, false)
}

func collectTenders(rows pgx.Rows, authoritative bool) ([]models.Tender, error) {
	tenders := []models.Tender{}
	for rows.Next() {
		t, err := scanTenderWithTime(rows, authoritative)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

// InsertCompetition creates an authoritative record. Blank strings are
// stored as NULL.
func (s *Store) InsertCompetition(ctx context.Context, t models.Tender) (models.Tender, error) {
	t = s.cleanTender(t)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO competitions (
			name, reference_number, brochure_cost, competition_type,
			contract_duration, government_entity, etimad_status, submission_method,
			deadline, competition_url, competition_purpose, guarantee_required,
			awarded_supplier, award_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+tenderCols+`, date_added`,
		nilIfEmpty(t.Name), t.ReferenceNumber, t.BrochureCost, nilIfEmpty(t.CompetitionType),
		nilIfEmpty(t.ContractDuration), nilIfEmpty(t.GovernmentEntity), nilIfEmpty(t.EtimadStatus), nilIfEmpty(t.SubmissionMethod),
		nilIfEmpty(t.Deadline), nilIfEmpty(t.CompetitionURL), nilIfEmpty(t.CompetitionPurpose), nilIfEmpty(t.GuaranteeRequired),
		t.AwardedSupplier, t.AwardAmount,
	)
	return scanTenderWithTime(row, true)
}

// UpdateCompetition rewrites an authoritative record in place by id.
func (s *Store) UpdateCompetition(ctx context.Context, id uuid.UUID, t models.Tender) (models.Tender, error) {
	t = s.cleanTender(t)
	row := s.pool.QueryRow(ctx, `
		UPDATE competitions SET
			name = $2, reference_number = $3, brochure_cost = $4, competition_type = $5,
			contract_duration = $6, government_entity = $7, etimad_status = $8, submission_method = $9,
			deadline = $10, competition_url = $11, competition_purpose = $12, guarantee_required = $13,
			awarded_supplier = $14, award_amount = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tenderCols+`, date_added`,
		id,
		nilIfEmpty(t.Name), t.ReferenceNumber, t.BrochureCost, nilIfEmpty(t.CompetitionType),
		nilIfEmpty(t.ContractDuration), nilIfEmpty(t.GovernmentEntity), nilIfEmpty(t.EtimadStatus), nilIfEmpty(t.SubmissionMethod),
		nilIfEmpty(t.Deadline), nilIfEmpty(t.CompetitionURL), nilIfEmpty(t.CompetitionPurpose), nilIfEmpty(t.GuaranteeRequired),
		t.AwardedSupplier, t.AwardAmount,
	)
	return scanTenderWithTime(row, true)
}

// PromoteToCompetitions copies a record into the authoritative table,
// upserting on the reference number so a retry cannot duplicate it.
func (s *Store) PromoteToCompetitions(ctx context.Context, t models.Tender) (models.Tender, error) {
	t = s.cleanTender(t)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO competitions (
			name, reference_number, brochure_cost, competition_type,
			contract_duration, government_entity, etimad_status, submission_method,
			deadline, competition_url, competition_purpose, guarantee_required,
			awarded_supplier, award_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (reference_number) DO UPDATE SET
			name = EXCLUDED.name,
			brochure_cost = EXCLUDED.brochure_cost,
			competition_type = COALESCE(EXCLUDED.competition_type, competitions.competition_type),
			contract_duration = COALESCE(EXCLUDED.contract_duration, competitions.contract_duration),
			government_entity = COALESCE(EXCLUDED.government_entity, competitions.government_entity),
			etimad_status = COALESCE(EXCLUDED.etimad_status, competitions.etimad_status),
			submission_method = COALESCE(EXCLUDED.submission_method, competitions.submission_method),
			deadline = COALESCE(EXCLUDED.deadline, competitions.deadline),
			competition_url = COALESCE(EXCLUDED.competition_url, competitions.competition_url),
			competition_purpose = COALESCE(EXCLUDED.competition_purpose, competitions.competition_purpose),
			guarantee_required = COALESCE(EXCLUDED.guarantee_required, competitions.guarantee_required),
			awarded_supplier = COALESCE(EXCLUDED.awarded_supplier, competitions.awarded_supplier),
			award_amount = COALESCE(EXCLUDED.award_amount, competitions.award_amount),
			updated_at = NOW()
		RETURNING `+tenderCols+`, date_added`,
		nilIfEmpty(t.Name), t.ReferenceNumber, t.BrochureCost, nilIfEmpty(t.CompetitionType),
		nilIfEmpty(t.ContractDuration), nilIfEmpty(t.GovernmentEntity), nilIfEmpty(t.EtimadStatus), nilIfEmpty(t.SubmissionMethod),
		nilIfEmpty(t.Deadline), nilIfEmpty(t.CompetitionURL), nilIfEmpty(t.CompetitionPurpose), nilIfEmpty(t.GuaranteeRequired),
		t.AwardedSupplier, t.AwardAmount,
	)
	return scanTenderWithTime(row, true)
}

func (s *Store) DeleteCompetition(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM competitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting competition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) InsertAttachment(ctx context.Context, a models.Attachment) (models.Attachment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO attachments (competition_id, file_name, file_path, file_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, competition_id, file_name, file_path, file_type, created_at`,
		a.CompetitionID, a.FileName, a.FilePath, a.FileType,
	)
	var out models.Attachment
	err := row.Scan(&out.ID, &out.CompetitionID, &out.FileName, &out.FilePath, &out.FileType, &out.CreatedAt)
	return out, err
}

func (s *Store) ListAttachments(ctx context.Context, competitionID uuid.UUID) ([]models.Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, competition_id, file_name, file_path, file_type, created_at
		FROM attachments WHERE competition_id = $1 ORDER BY created_at DESC`,
		competitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	out := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.CompetitionID, &a.FileName, &a.FilePath, &a.FileType, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// nilIfEmpty returns nil for empty strings so NULL is stored in DB.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
