package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// StatsService aggregates a team's resolved matches into immutable
// snapshots. Rebuilds always recompute from scratch, so a snapshot can
// never drift from the match history it summarizes.
type StatsService struct {
	statsRepo repositories.TeamStatsRepository
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	regRepo   repositories.RegistrationRepository
	logger    *slog.Logger
	now       func() time.Time
}

func NewStatsService(
	statsRepo repositories.TeamStatsRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	regRepo repositories.RegistrationRepository,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		regRepo:   regRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// RebuildStats recomputes the team's record from every verified and
// completed match and stores it as a new snapshot.
func (s *StatsService) RebuildStats(ctx context.Context, teamID int) (*models.TeamStats, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	matches, err := s.matchRepo.ListResolvedByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	stats := &models.TeamStats{
		TeamID:     teamID,
		ComputedAt: s.now(),
	}

	// outcomes in chronological order: +1 win, -1 loss, 0 draw.
	outcomes := make([]int, 0, len(matches))
	for _, match := range matches {
		won, draw, err := s.outcomeForTeam(ctx, match, teamID)
		if err != nil {
			return nil, err
		}
		stats.MatchesPlayed++
		switch {
		case draw:
			stats.Draws++
			outcomes = append(outcomes, 0)
		case won:
			stats.Wins++
			outcomes = append(outcomes, 1)
		default:
			stats.Losses++
			outcomes = append(outcomes, -1)
		}
	}

	if stats.MatchesPlayed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.MatchesPlayed) * 100
	}
	stats.Streak = currentStreak(outcomes)

	if err := s.statsRepo.InsertSnapshot(ctx, stats); err != nil {
		return nil, err
	}
	s.logger.Info("team stats rebuilt",
		slog.Int("team_id", teamID),
		slog.Int("played", stats.MatchesPlayed),
		slog.Int("streak", stats.Streak))
	return stats, nil
}

func (s *StatsService) LatestByTeam(ctx context.Context, teamID int) (*models.TeamStats, error) {
	stats, err := s.statsRepo.LatestByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrStatsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stats, nil
}

func (s *StatsService) HistoryByTeam(ctx context.Context, teamID int, limit int) ([]*models.TeamStats, error) {
	return s.statsRepo.HistoryByTeam(ctx, teamID, limit)
}

// outcomeForTeam maps a match outcome onto the team: did one of the
// team's registrations win, lose, or draw.
func (s *StatsService) outcomeForTeam(ctx context.Context, match *models.Match, teamID int) (won bool, draw bool, err error) {
	if match.WinnerID == nil {
		return false, true, nil
	}
	winner, err := s.regRepo.GetByID(ctx, nil, *match.WinnerID)
	if err != nil {
		return false, false, mapRegistrationRepoError(err)
	}
	return winner.TeamID != nil && *winner.TeamID == teamID, false, nil
}

// currentStreak is the signed run length of the most recent
// same-outcome results. A trailing draw resets the streak to zero.
func currentStreak(outcomes []int) int {
	if len(outcomes) == 0 {
		return 0
	}
	last := outcomes[len(outcomes)-1]
	if last == 0 {
		return 0
	}
	streak := 0
	for i := len(outcomes) - 1; i >= 0 && outcomes[i] == last; i-- {
		streak++
	}
	return streak * last
}
