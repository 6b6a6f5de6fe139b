package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltacrown/deltacrown/models"
)

// seedBracketTournament registers and confirms n solo players on a
// published tournament, ready for generation.
func seedBracketTournament(t *testing.T, e *testEnv, format models.TournamentFormat, slotSize, entrants int) (*models.Tournament, []*models.Registration) {
	t.Helper()
	tournament := e.seedTournament(t, format, slotSize, models.StatusPublished, nil)
	registrations := make([]*models.Registration, 0, entrants)
	for i := 0; i < entrants; i++ {
		registration, _ := e.seedConfirmedSolo(t, tournament)
		require.Equal(t, models.RegistrationConfirmed, registration.Status)
		registrations = append(registrations, registration)
	}
	return tournament, registrations
}

func matchBySlotUID(matches []*models.Match, uid string) *models.Match {
	for _, m := range matches {
		if m.SlotUID == uid {
			return m
		}
	}
	return nil
}

func TestGenerateSingleEliminationTopology(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, regs := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 4)

	created, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)
	require.Len(t, created, 3)

	r1m1 := matchBySlotUID(created, "R1M1")
	r1m2 := matchBySlotUID(created, "R1M2")
	final := matchBySlotUID(created, "R2M1")
	require.NotNil(t, r1m1)
	require.NotNil(t, r1m2)
	require.NotNil(t, final)

	// Standard pairings: top seed vs bottom seed.
	assert.Equal(t, regs[0].ID, *r1m1.EntrantAID)
	assert.Equal(t, regs[3].ID, *r1m1.EntrantBID)
	assert.Equal(t, regs[1].ID, *r1m2.EntrantAID)
	assert.Equal(t, regs[2].ID, *r1m2.EntrantBID)

	// Round 1 winners feed the final.
	require.NotNil(t, r1m1.NextMatchID)
	assert.Equal(t, final.ID, *r1m1.NextMatchID)
	assert.Equal(t, 1, *r1m1.NextSlot)
	require.NotNil(t, r1m2.NextMatchID)
	assert.Equal(t, final.ID, *r1m2.NextMatchID)
	assert.Equal(t, 2, *r1m2.NextSlot)

	assert.Equal(t, r1m1.ID, *final.SourceAID)
	assert.Equal(t, r1m2.ID, *final.SourceBID)
	assert.Nil(t, final.EntrantAID)
	assert.Nil(t, final.EntrantBID)

	// Generation locks the settings.
	settings, err := e.tournamentRepo.GetSettings(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.True(t, settings.Locked)
}

func TestGenerateByeAdvancesImmediately(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, regs := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 3)

	created, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)
	require.Len(t, created, 3)

	bye := matchBySlotUID(created, "R1M1")
	require.NotNil(t, bye)
	require.True(t, bye.IsBye)

	// The bye resolved at generation and its entrant already sits in the
	// final's first slot.
	persisted, err := e.matchRepo.GetByID(ctx, nil, bye.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, persisted.State)
	require.NotNil(t, persisted.WinnerID)
	assert.Equal(t, regs[0].ID, *persisted.WinnerID)

	final, err := e.matchRepo.GetByID(ctx, nil, matchBySlotUID(created, "R2M1").ID)
	require.NoError(t, err)
	require.NotNil(t, final.EntrantAID)
	assert.Equal(t, regs[0].ID, *final.EntrantAID)
	assert.Nil(t, final.EntrantBID)
}

func TestGenerateRoundRobinPairsEveryone(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, regs := seedBracketTournament(t, e, models.FormatRoundRobin, 4, 4)

	created, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)
	// n entrants, n-1 rounds, every pair exactly once.
	require.Len(t, created, 6)

	pairs := make(map[[2]int]int)
	for _, match := range created {
		require.NotNil(t, match.EntrantAID)
		require.NotNil(t, match.EntrantBID)
		assert.Nil(t, match.NextMatchID)
		a, b := *match.EntrantAID, *match.EntrantBID
		if a > b {
			a, b = b, a
		}
		pairs[[2]int{a, b}]++
	}
	assert.Len(t, pairs, 6)
	for pair, count := range pairs {
		assert.Equal(t, 1, count, "pair %v", pair)
	}
	_ = regs
}

func TestGenerateGuards(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	t.Run("registration window still open", func(t *testing.T) {
		tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 2)
		e.bracketSvc.now = func() time.Time { return testBase.Add(-90 * time.Minute) }
		defer func() { e.bracketSvc.now = func() time.Time { return testBase } }()

		_, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
		assert.ErrorIs(t, err, ErrRegistrationWindowClosed)
	})

	t.Run("not enough confirmed entrants", func(t *testing.T) {
		tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 1)
		_, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
		assert.ErrorIs(t, err, ErrNotEnoughEntrants)
	})

	t.Run("unsupported format", func(t *testing.T) {
		tournament, _ := seedBracketTournament(t, e, models.FormatDoubleElimination, 4, 2)
		_, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
		assert.ErrorIs(t, err, ErrBracketTypeUnsupported)
	})

	t.Run("organizer only", func(t *testing.T) {
		tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 2)
		stranger := e.seedUser(t, models.RoleOrganizer, nil)
		_, err := e.bracketSvc.Generate(ctx, tournament.ID, stranger.ID)
		assert.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("draft tournament", func(t *testing.T) {
		tournament := e.seedTournament(t, models.FormatSingleElimination, 4, models.StatusDraft, nil)
		_, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
		assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
	})
}

func TestRegenerateBeforeProgress(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 4)

	first, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)

	// No match has progressed: regeneration replaces the bracket.
	second, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)
	require.Len(t, second, len(first))

	all, err := e.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(second))
}

func TestRegenerateLockedAfterProgress(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 4)

	created, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)

	_, err = e.matches.Start(ctx, matchBySlotUID(created, "R1M1").ID)
	require.NoError(t, err)

	_, err = e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	assert.ErrorIs(t, err, ErrBracketLocked)
}

func TestGetFullBracket(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tournament, _ := seedBracketTournament(t, e, models.FormatSingleElimination, 4, 4)

	_, err := e.bracketSvc.Generate(ctx, tournament.ID, tournament.OrganizerID)
	require.NoError(t, err)

	full, err := e.bracketSvc.GetFullBracket(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, full.Registrations, 4)
	assert.Len(t, full.Matches, 3)
	require.NotNil(t, full.Settings)
	assert.True(t, full.Settings.Locked)
}
