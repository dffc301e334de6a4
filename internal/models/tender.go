package models

import (
	"time"

	"github.com/google/uuid"
)

// Provenance values returned by the search endpoints so the frontend can
// tell where a record came from.
const (
	SourceExisting       = "existing"
	SourceScrapedPreview = "scraped_preview"
	SourceNewlyScraped   = "newly_scraped_preview"
)

// Tender is the canonical record for one Etimad competition. A record is
// persistable as soon as ReferenceNumber is known; every other field is
// best-effort.
type Tender struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	ReferenceNumber    string     `json:"referenceNumber"`
	BrochureCost       float64    `json:"brochureCost"`
	CompetitionType    string     `json:"competitionType"`
	ContractDuration   string     `json:"contractDuration"`
	GovernmentEntity   string     `json:"governmentEntity"`
	EtimadStatus       string     `json:"etimadStatus"`
	SubmissionMethod   string     `json:"submissionMethod"`
	Deadline           string     `json:"deadline"` // "2006-01-02 15:04", timezone-naive
	CompetitionURL     string     `json:"competitionUrl"`
	CompetitionPurpose string     `json:"competitionPurpose"`
	GuaranteeRequired  string     `json:"guaranteeRequired"`
	AwardedSupplier    *string    `json:"awardedSupplier"`
	AwardAmount        *float64   `json:"awardAmount"`
	DateAdded          *time.Time `json:"dateAdded,omitempty"`
	ScrapedAt          *time.Time `json:"scrapedAt,omitempty"`

	// Set only on search responses.
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

// Attachment is a file stored against an authoritative competition record.
type Attachment struct {
	ID            uuid.UUID `json:"id"`
	CompetitionID uuid.UUID `json:"competition_id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileType      string    `json:"file_type"`
	CreatedAt     time.Time `json:"created_at"`

	// Best-effort date strings found inside an uploaded PDF brochure,
	// offered to the UI as deadline suggestions. Never persisted.
	DeadlineHints []string `json:"deadline_hints,omitempty"`
}
