package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deltacrown/deltacrown/models"
)

var ErrStatsNotFound = errors.New("team stats snapshot not found")

// TeamStatsRepository stores append-only ranking snapshots. There is no
// update path: every rebuild inserts a fresh row.
type TeamStatsRepository interface {
	InsertSnapshot(ctx context.Context, s *models.TeamStats) error
	LatestByTeam(ctx context.Context, teamID int) (*models.TeamStats, error)
	HistoryByTeam(ctx context.Context, teamID int, limit int) ([]*models.TeamStats, error)
}

type postgresTeamStatsRepository struct {
	db *sql.DB
}

func NewPostgresTeamStatsRepository(db *sql.DB) TeamStatsRepository {
	return &postgresTeamStatsRepository{db: db}
}

func (r *postgresTeamStatsRepository) InsertSnapshot(ctx context.Context, s *models.TeamStats) error {
	query := `
		INSERT INTO team_stats
			(team_id, matches_played, wins, losses, draws, win_rate, streak, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		s.TeamID, s.MatchesPlayed, s.Wins, s.Losses, s.Draws,
		s.WinRate, s.Streak, s.ComputedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert team stats snapshot: %w", err)
	}
	return nil
}

func (r *postgresTeamStatsRepository) scanStats(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.TeamStats, error) {
	s := &models.TeamStats{}
	err := rowScanner.Scan(
		&s.ID, &s.TeamID, &s.MatchesPlayed, &s.Wins, &s.Losses,
		&s.Draws, &s.WinRate, &s.Streak, &s.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to scan team stats: %w", err)
	}
	return s, nil
}

func (r *postgresTeamStatsRepository) LatestByTeam(ctx context.Context, teamID int) (*models.TeamStats, error) {
	query := `
		SELECT id, team_id, matches_played, wins, losses, draws, win_rate, streak, computed_at
		FROM team_stats
		WHERE team_id = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1`
	return r.scanStats(r.db.QueryRowContext(ctx, query, teamID))
}

func (r *postgresTeamStatsRepository) HistoryByTeam(ctx context.Context, teamID int, limit int) ([]*models.TeamStats, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, matches_played, wins, losses, draws, win_rate, streak, computed_at
		FROM team_stats
		WHERE team_id = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT $2`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list team stats history: %w", err)
	}
	defer rows.Close()

	history := make([]*models.TeamStats, 0)
	for rows.Next() {
		s, scanErr := r.scanStats(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		history = append(history, s)
	}
	return history, rows.Err()
}
