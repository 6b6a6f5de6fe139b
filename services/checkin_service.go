package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// CheckinService opens check-in windows for upcoming matches. The sweep
// runs on a timer and may fire many times inside one window; the
// per-recipient dedupe key on the notification row keeps delivery
// exactly-once.
type CheckinService struct {
	tournamentRepo   repositories.TournamentRepository
	matchRepo        repositories.MatchRepository
	registrationRepo repositories.RegistrationRepository
	userRepo         repositories.UserRepository
	notifier         Notifier
	logger           *slog.Logger
}

func NewCheckinService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	registrationRepo repositories.RegistrationRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *CheckinService {
	return &CheckinService{
		tournamentRepo:   tournamentRepo,
		matchRepo:        matchRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

// Sweep scans running tournaments for scheduled matches whose check-in
// window contains now and notifies every affected player once.
func (s *CheckinService) Sweep(ctx context.Context, now time.Time) (int, error) {
	running, err := s.tournamentRepo.ListByStatus(ctx, models.StatusRunning)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, tournament := range running {
		settings, err := s.tournamentRepo.GetSettings(ctx, nil, tournament.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrSettingsNotFound) {
				continue
			}
			return notified, err
		}

		stateScheduled := models.MatchScheduled
		matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, &stateScheduled)
		if err != nil {
			return notified, err
		}

		for _, match := range matches {
			if match.IsBye || match.StartAt == nil {
				continue
			}
			opensAt := match.StartAt.Add(-time.Duration(settings.CheckInOpenMins) * time.Minute)
			closesAt := match.StartAt.Add(-time.Duration(settings.CheckInCloseMins) * time.Minute)
			if now.Before(opensAt) || !now.Before(closesAt) {
				continue
			}

			count, err := s.notifyMatch(ctx, tournament.ID, match)
			if err != nil {
				s.logger.Error("check-in notify failed",
					slog.Int("match_id", match.ID), slog.Any("error", err))
				continue
			}
			if count > 0 {
				notified += count
				s.notifier.BroadcastTournament(tournament.ID, brackets.EventCheckinOpen,
					map[string]interface{}{"match_id": match.ID, "start_at": match.StartAt})
			}
		}
	}
	return notified, nil
}

// notifyMatch delivers checkin_open to every player behind both
// entrants. Returns how many notifications were newly created; zero
// means this window already fired.
func (s *CheckinService) notifyMatch(ctx context.Context, tournamentID int, match *models.Match) (int, error) {
	created := 0
	for _, regID := range []*int{match.EntrantAID, match.EntrantBID} {
		if regID == nil {
			continue
		}
		recipients, err := s.recipientsForRegistration(ctx, *regID)
		if err != nil {
			return created, err
		}
		for _, recipientID := range recipients {
			key := checkinDedupeKey(match.ID, recipientID)
			if s.notifier.Notify(ctx, nil, recipientID, models.NotificationCheckinOpen,
				map[string]interface{}{
					"tournament_id": tournamentID,
					"match_id":      match.ID,
					"start_at":      match.StartAt,
				}, &key) {
				created++
			}
		}
	}
	return created, nil
}

// recipientsForRegistration expands a registration into user IDs: the
// solo player, or every member of the team.
func (s *CheckinService) recipientsForRegistration(ctx context.Context, registrationID int) ([]int, error) {
	registration, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}
	if registration.UserID != nil {
		return []int{*registration.UserID}, nil
	}
	if registration.TeamID == nil {
		return nil, nil
	}
	members, err := s.userRepo.ListByTeam(ctx, *registration.TeamID)
	if err != nil {
		return nil, err
	}
	recipients := make([]int, 0, len(members))
	for _, member := range members {
		recipients = append(recipients, member.ID)
	}
	return recipients, nil
}
