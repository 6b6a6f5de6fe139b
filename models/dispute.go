package models

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// MatchDispute is raised when the two sides of a match report
// conflicting scores. It is an expected, recoverable state requiring
// organizer adjudication, not an error.
type MatchDispute struct {
	ID           int           `json:"id" db:"id"`
	MatchID      int           `json:"match_id" db:"match_id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	OpenedByID   *int          `json:"opened_by_id,omitempty" db:"opened_by_id"`
	Status       DisputeStatus `json:"status" db:"status"`
	Reason       string        `json:"reason" db:"reason"`
	Resolution   *string       `json:"resolution,omitempty" db:"resolution"`
	ResolvedByID *int          `json:"resolved_by_id,omitempty" db:"resolved_by_id"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`

	Evidence []DisputeEvidence `json:"evidence,omitempty" db:"-"`
}

// DisputeEvidence is an attachment (screenshot, VOD link dump, …)
// stored in object storage under ObjectKey.
type DisputeEvidence struct {
	ID          int       `json:"id" db:"id"`
	DisputeID   int       `json:"dispute_id" db:"dispute_id"`
	UploaderID  int       `json:"uploader_id" db:"uploader_id"`
	ObjectKey   string    `json:"-" db:"object_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	URL         string    `json:"url,omitempty" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
