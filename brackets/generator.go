package brackets

import (
	"context"
	"errors"

	"github.com/deltacrown/deltacrown/models"
)

var (
	ErrNotEnoughEntrants = errors.New("not enough entrants to generate a bracket (minimum 2)")
	ErrTypeUnsupported   = errors.New("bracket generation is not supported for this format")
)

// SlotMatch is one generated bracket cell before persistence. EntrantA
// and EntrantB hold registration IDs when known at generation time;
// later rounds reference the matches that feed them by UID instead.
type SlotMatch struct {
	UID          string
	Round        int
	OrderInRound int

	EntrantA *int
	EntrantB *int

	SourceAUID *string
	SourceBUID *string

	// IsBye marks a round-1 cell with a single entrant and no opponent.
	// Such a match auto-advances its entrant without being played.
	IsBye bool
}

type GenerateParams struct {
	Tournament *models.Tournament
	// Entrants in seed order: index 0 is the top seed. The caller is
	// responsible for the ordering tie-break (seed rank, then
	// registration id ascending).
	Entrants []*models.Registration
}

// Generator produces the full match topology for one tournament.
// Generation must be deterministic: the same ordered entrants always
// yield the same slots.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*SlotMatch, error)
	Name() string
}

// ForFormat returns the generator for a tournament format, or
// ErrTypeUnsupported for formats whose structure this system does not
// generate (double elimination, swiss).
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, ErrTypeUnsupported
	}
}
