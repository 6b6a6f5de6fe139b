package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deltacrown/deltacrown/models"
)

// testBase anchors every seeded tournament: registration runs
// [base-2h, base-1h), play starts at base.
var testBase = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// testEnv wires every service over the in-memory repositories with a
// nil *sql.DB, so transactional paths run against the fakes directly.
type testEnv struct {
	tournamentRepo   *fakeTournamentRepo
	registrationRepo *fakeRegistrationRepo
	matchRepo        *fakeMatchRepo
	disputeRepo      *fakeDisputeRepo
	notificationRepo *fakeNotificationRepo
	teamRepo         *fakeTeamRepo
	userRepo         *fakeUserRepo
	statsRepo        *fakeStatsRepo

	tournaments   *TournamentService
	registrations *RegistrationService
	matches       *MatchService
	bracketSvc    *BracketService
	scheduler     *SchedulerService
	checkin       *CheckinService
	stats         *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &testEnv{
		tournamentRepo:   newFakeTournamentRepo(),
		registrationRepo: newFakeRegistrationRepo(),
		disputeRepo:      newFakeDisputeRepo(),
		notificationRepo: newFakeNotificationRepo(),
		teamRepo:         newFakeTeamRepo(),
		userRepo:         newFakeUserRepo(),
		statsRepo:        newFakeStatsRepo(),
	}
	e.matchRepo = newFakeMatchRepo(e.registrationRepo)

	notifier := NewHubNotifier(e.notificationRepo, nil, logger)
	e.matches = NewMatchService(nil, e.matchRepo, e.tournamentRepo, e.registrationRepo, e.teamRepo, e.disputeRepo, notifier, logger)
	e.tournaments = NewTournamentService(nil, e.tournamentRepo, e.userRepo, notifier, logger)
	e.registrations = NewRegistrationService(nil, e.registrationRepo, e.tournamentRepo, e.teamRepo, e.matches, notifier, logger)
	e.bracketSvc = NewBracketService(nil, e.tournamentRepo, e.registrationRepo, e.matchRepo, e.matches, notifier, logger)
	e.scheduler = NewSchedulerService(nil, e.tournamentRepo, e.matchRepo, notifier, logger)
	e.checkin = NewCheckinService(e.tournamentRepo, e.matchRepo, e.registrationRepo, e.userRepo, notifier, logger)
	e.stats = NewStatsService(e.statsRepo, e.matchRepo, e.teamRepo, e.registrationRepo, logger)

	// Pin the clocks: registration actions land inside the window,
	// bracket generation and match play happen after it closes.
	e.registrations.now = func() time.Time { return testBase.Add(-90 * time.Minute) }
	e.bracketSvc.now = func() time.Time { return testBase }
	e.matches.now = func() time.Time { return testBase }
	e.stats.now = func() time.Time { return testBase }

	return e
}

func (e *testEnv) seedUser(t *testing.T, role models.UserRole, teamID *int) *models.User {
	t.Helper()
	user := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     fmt.Sprintf("user%d@example.com", len(e.userRepo.users)+1),
		Role:      role,
		TeamID:    teamID,
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

// seedTeam creates a team with a captain plus extra members, all linked
// back to the team.
func (e *testEnv) seedTeam(t *testing.T, game string, extraMembers int) (*models.Team, *models.User) {
	t.Helper()
	captain := e.seedUser(t, models.RolePlayer, nil)
	team := &models.Team{
		Name:      fmt.Sprintf("Team %d", len(e.teamRepo.teams)+1),
		Game:      game,
		CaptainID: captain.ID,
	}
	require.NoError(t, e.teamRepo.Create(context.Background(), team))

	captain.TeamID = &team.ID
	e.userRepo.put(captain)
	for i := 0; i < extraMembers; i++ {
		e.seedUser(t, models.RolePlayer, &team.ID)
	}
	return team, captain
}

func (e *testEnv) seedTournament(t *testing.T, format models.TournamentFormat, slotSize int, status models.TournamentStatus, mutate func(*models.TournamentSettings)) *models.Tournament {
	t.Helper()
	organizer := e.seedUser(t, models.RoleOrganizer, nil)
	settings := defaultSettings(0)
	if mutate != nil {
		mutate(settings)
	}

	tournament, err := e.tournaments.Create(context.Background(), CreateTournamentInput{
		Name:        "Test Cup",
		Slug:        fmt.Sprintf("test-cup-%d", len(e.tournamentRepo.tournaments)+1),
		Game:        "valorant",
		OrganizerID: organizer.ID,
		Format:      format,
		SlotSize:    slotSize,
		RegOpenAt:   testBase.Add(-2 * time.Hour),
		RegCloseAt:  testBase.Add(-1 * time.Hour),
		StartAt:     testBase,
		EndAt:       testBase.Add(6 * time.Hour),
		Settings:    settings,
	})
	require.NoError(t, err)

	if status != models.StatusDraft {
		require.NoError(t, e.tournamentRepo.UpdateStatus(context.Background(), nil, tournament.ID, status))
		tournament.Status = status
	}
	return tournament
}

// seedConfirmedSolo walks a solo player through the full gate: register,
// submit payment, organizer approval.
func (e *testEnv) seedConfirmedSolo(t *testing.T, tournament *models.Tournament) (*models.Registration, *models.User) {
	t.Helper()
	ctx := context.Background()
	player := e.seedUser(t, models.RolePlayer, nil)

	registration, err := e.registrations.Register(ctx, RegisterInput{
		TournamentID: tournament.ID,
		UserID:       &player.ID,
	})
	require.NoError(t, err)
	require.NoError(t, e.registrations.SubmitPayment(ctx, registration.ID))

	registration, err = e.registrations.VerifyPayment(ctx, registration.ID, tournament.OrganizerID, true)
	require.NoError(t, err)
	return registration, player
}
