package models

import "time"

// MatchState mirrors the match_state ENUM in the database.
//
// scheduled -> live -> reported -> verified -> completed
//                          \-> disputed -> verified
type MatchState string

const (
	MatchScheduled MatchState = "scheduled"
	MatchLive      MatchState = "live"
	MatchReported  MatchState = "reported"
	MatchVerified  MatchState = "verified"
	MatchDisputed  MatchState = "disputed"
	MatchCompleted MatchState = "completed"
)

// ScoreReport is one side's claim about a match outcome. A and B refer
// to the match's entrant_a/entrant_b slots regardless of which side
// reported.
type ScoreReport struct {
	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`
}

// Match is one bracket cell. EntrantAID/EntrantBID hold registration
// IDs and stay nil until the source matches resolve. Matches are never
// deleted once created, only transitioned.
type Match struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	SlotUID      string     `json:"slot_uid" db:"slot_uid"`
	RoundNo      int        `json:"round_no" db:"round_no"`
	Position     int        `json:"position" db:"position"`
	BestOf       int        `json:"best_of" db:"best_of"`
	State        MatchState `json:"state" db:"state"`
	IsBye        bool       `json:"is_bye" db:"is_bye"`

	EntrantAID *int `json:"entrant_a_id,omitempty" db:"entrant_a_id"`
	EntrantBID *int `json:"entrant_b_id,omitempty" db:"entrant_b_id"`

	// Bracket wiring: where this match's winner goes, and which matches
	// feed each slot. Filled during generation, immutable after.
	SourceAID   *int `json:"source_a_id,omitempty" db:"source_a_id"`
	SourceBID   *int `json:"source_b_id,omitempty" db:"source_b_id"`
	NextMatchID *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot    *int `json:"next_slot,omitempty" db:"next_slot"`

	StartAt *time.Time `json:"start_at,omitempty" db:"start_at"`

	// Per-side claims recorded by SubmitResult. ReportA is entrant A's
	// claim, ReportB is entrant B's; both are about the same two scores.
	ReportA *ScoreReport `json:"report_a,omitempty" db:"-"`
	ReportB *ScoreReport `json:"report_b,omitempty" db:"-"`

	// Final outcome, set by verification only.
	ScoreA   *int `json:"score_a,omitempty" db:"score_a"`
	ScoreB   *int `json:"score_b,omitempty" db:"score_b"`
	WinnerID *int `json:"winner_id,omitempty" db:"winner_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	EntrantA *Registration `json:"entrant_a,omitempty" db:"-"`
	EntrantB *Registration `json:"entrant_b,omitempty" db:"-"`
}

// Resolved reports whether the outcome is final.
func (m *Match) Resolved() bool {
	return m.State == MatchVerified || m.State == MatchCompleted
}

// SideOf returns which slot ("a" or "b") the given registration
// occupies, or "" if it is not an entrant of this match.
func (m *Match) SideOf(registrationID int) string {
	if m.EntrantAID != nil && *m.EntrantAID == registrationID {
		return "a"
	}
	if m.EntrantBID != nil && *m.EntrantBID == registrationID {
		return "b"
	}
	return ""
}
