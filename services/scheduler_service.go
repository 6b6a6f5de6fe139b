package services

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// SchedulerService assigns start times to generated matches. Every
// match in round N shares the baseline
//
//	tournament.start_at + (N-1) * (round_duration + round_gap)
//
// so later rounds never start before the rounds feeding them.
type SchedulerService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	notifier       Notifier
	logger         *slog.Logger
}

func NewSchedulerService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	notifier Notifier,
	logger *slog.Logger,
) *SchedulerService {
	return &SchedulerService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

func roundStart(tournament *models.Tournament, settings *models.TournamentSettings, round int) time.Time {
	slotLength := time.Duration(settings.RoundDurationMins+settings.RoundGapMins) * time.Minute
	return tournament.StartAt.Add(time.Duration(round-1) * slotLength)
}

// AutoSchedule fills start_at on every unscheduled non-bye match of a
// tournament. Already-scheduled matches are left untouched, so the
// operation is idempotent and safe to re-run after regeneration or a
// gap appears.
func (s *SchedulerService) AutoSchedule(ctx context.Context, tournamentID int) (int, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return 0, mapTournamentRepoError(err)
	}
	settings, err := s.tournamentRepo.GetSettings(ctx, nil, tournamentID)
	if err != nil {
		return 0, err
	}

	scheduled := 0
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		unscheduled, err := s.matchRepo.ListUnscheduled(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		for _, match := range unscheduled {
			startAt := roundStart(tournament, settings, match.RoundNo)
			if err := s.matchRepo.UpdateStartAt(ctx, tx, match.ID, startAt); err != nil {
				return err
			}
			scheduled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if scheduled > 0 {
		s.logger.Info("matches scheduled",
			slog.Int("tournament_id", tournamentID), slog.Int("count", scheduled))
		s.notifier.BroadcastTournament(tournamentID, brackets.EventScheduleUpdated,
			map[string]interface{}{"tournament_id": tournamentID, "scheduled": scheduled})
	}
	return scheduled, nil
}

// SweepRunning auto-schedules every running tournament. Invoked by the
// background ticker.
func (s *SchedulerService) SweepRunning(ctx context.Context) error {
	running, err := s.tournamentRepo.ListByStatus(ctx, models.StatusRunning)
	if err != nil {
		return err
	}
	for _, tournament := range running {
		if _, err := s.AutoSchedule(ctx, tournament.ID); err != nil {
			s.logger.Error("auto schedule failed",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
		}
	}
	return nil
}
