package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusPublished TournamentStatus = "published"
	StatusRunning   TournamentStatus = "running"
	StatusCompleted TournamentStatus = "completed"
	StatusArchived  TournamentStatus = "archived"
	StatusCanceled  TournamentStatus = "canceled"
)

// TournamentFormat mirrors the tournament_format ENUM in the database.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
)

// IsElimination reports whether the format pairs entrants in a
// power-of-two knockout structure.
func (f TournamentFormat) IsElimination() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Slug        string           `json:"slug" db:"slug"`
	Game        string           `json:"game" db:"game"`
	Description *string          `json:"description,omitempty" db:"description"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Format      TournamentFormat `json:"format" db:"format"`
	SlotSize    int              `json:"slot_size" db:"slot_size"`
	RegOpenAt   time.Time        `json:"reg_open_at" db:"reg_open_at"`
	RegCloseAt  time.Time        `json:"reg_close_at" db:"reg_close_at"`
	StartAt     time.Time        `json:"start_at" db:"start_at"`
	EndAt       time.Time        `json:"end_at" db:"end_at"`
	Status      TournamentStatus `json:"status" db:"status"`
	WinnerID    *int             `json:"winner_registration_id,omitempty" db:"winner_registration_id"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	// Optional linked data, populated by services, never scanned directly.
	Settings      *TournamentSettings `json:"settings,omitempty" db:"-"`
	Organizer     *User               `json:"organizer,omitempty" db:"-"`
	Registrations []Registration      `json:"registrations,omitempty" db:"-"`
	Matches       []Match             `json:"matches,omitempty" db:"-"`
}

// RegistrationWindowOpen reports whether now falls inside
// [reg_open_at, reg_close_at).
func (t *Tournament) RegistrationWindowOpen(now time.Time) bool {
	return !now.Before(t.RegOpenAt) && now.Before(t.RegCloseAt)
}

// TournamentSettings is the one-to-one operational companion of a
// Tournament. Mutable by the organizer until Locked is set by bracket
// generation.
type TournamentSettings struct {
	TournamentID      int    `json:"tournament_id" db:"tournament_id"`
	CheckInOpenMins   int    `json:"check_in_open_mins" db:"check_in_open_mins"`
	CheckInCloseMins  int    `json:"check_in_close_mins" db:"check_in_close_mins"`
	RoundDurationMins int    `json:"round_duration_mins" db:"round_duration_mins"`
	RoundGapMins      int    `json:"round_gap_mins" db:"round_gap_mins"`
	BestOf            int    `json:"best_of" db:"best_of"`
	WaitlistEnabled   bool   `json:"waitlist_enabled" db:"waitlist_enabled"`
	AllowDraws        bool   `json:"allow_draws" db:"allow_draws"`
	AllowSubstitutes  bool   `json:"allow_substitutes" db:"allow_substitutes"`
	DoubleRoundRobin  bool   `json:"double_round_robin" db:"double_round_robin"`
	Visibility        string `json:"visibility" db:"visibility"`
	Locked            bool   `json:"locked" db:"locked"`
}
