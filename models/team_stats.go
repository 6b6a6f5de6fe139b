package models

import "time"

// TeamStats is an immutable snapshot of a team's record computed from
// verified and completed matches. Rebuilds insert a new row instead of
// mutating history, so point-in-time stats stay reconstructable.
type TeamStats struct {
	ID            int       `json:"id" db:"id"`
	TeamID        int       `json:"team_id" db:"team_id"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	Wins          int       `json:"wins" db:"wins"`
	Losses        int       `json:"losses" db:"losses"`
	Draws         int       `json:"draws" db:"draws"`
	WinRate       float64   `json:"win_rate" db:"win_rate"`
	// Streak is the signed run length of the most recent same-outcome
	// results: +3 is three straight wins, -2 two straight losses.
	Streak     int       `json:"streak" db:"streak"`
	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}
