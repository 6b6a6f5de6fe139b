package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deltacrown/deltacrown/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug already in use")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
	ErrSettingsNotFound       = errors.New("tournament settings not found")
)

type ListTournamentsFilter struct {
	Game        *string
	OrganizerID *int
	Status      *models.TournamentStatus
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the remainder of the
	// surrounding transaction. Capacity checks count registrations under
	// this lock so concurrent confirmations serialize.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, t *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID *int) error
	// ListDueForStart returns published tournaments whose start time has
	// passed, for the background status sweep.
	ListDueForStart(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error)

	CreateSettings(ctx context.Context, exec SQLExecutor, s *models.TournamentSettings) error
	GetSettings(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentSettings, error)
	UpdateSettings(ctx context.Context, s *models.TournamentSettings) error
	LockSettings(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, slug, game, description, organizer_id, format, slot_size,
	reg_open_at, reg_close_at, start_at, end_at, status, winner_registration_id, created_at`

func (r *postgresTournamentRepository) scanTournament(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := rowScanner.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Game, &t.Description, &t.OrganizerID,
		&t.Format, &t.SlotSize, &t.RegOpenAt, &t.RegCloseAt, &t.StartAt,
		&t.EndAt, &t.Status, &t.WinnerID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments
			(name, slug, game, description, organizer_id, format, slot_size,
			 reg_open_at, reg_close_at, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Game, t.Description, t.OrganizerID, t.Format,
		t.SlotSize, t.RegOpenAt, t.RegCloseAt, t.StartAt, t.EndAt, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE slug = $1`
	return r.scanTournament(r.db.QueryRowContext(ctx, query, slug))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`)

	args := make([]interface{}, 0)
	addFilter := func(clause string, value interface{}) {
		args = append(args, value)
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", clause, len(args)))
	}
	if filter.Game != nil {
		addFilter("game", *filter.Game)
	}
	if filter.OrganizerID != nil {
		addFilter("organizer_id", *filter.OrganizerID)
	}
	if filter.Status != nil {
		addFilter("status", *filter.Status)
	}
	queryBuilder.WriteString(" ORDER BY start_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1, description = $2, format = $3, slot_size = $4,
			reg_open_at = $5, reg_close_at = $6, start_at = $7, end_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Format, t.SlotSize,
		t.RegOpenAt, t.RegCloseAt, t.StartAt, t.EndAt, t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET winner_registration_id = $1 WHERE id = $2`, winnerRegistrationID, id)
	if err != nil {
		return fmt.Errorf("failed to set tournament winner: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListDueForStart(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND start_at <= $2
		ORDER BY start_at ASC`
	return r.queryTournaments(ctx, query, models.StatusPublished, now)
}

func (r *postgresTournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE status = $1 ORDER BY start_at ASC`
	return r.queryTournaments(ctx, query, status)
}

func (r *postgresTournamentRepository) queryTournaments(ctx context.Context, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) CreateSettings(ctx context.Context, exec SQLExecutor, s *models.TournamentSettings) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_settings
			(tournament_id, check_in_open_mins, check_in_close_mins,
			 round_duration_mins, round_gap_mins, best_of, waitlist_enabled,
			 allow_draws, allow_substitutes, double_round_robin, visibility, locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := executor.ExecContext(ctx, query,
		s.TournamentID, s.CheckInOpenMins, s.CheckInCloseMins,
		s.RoundDurationMins, s.RoundGapMins, s.BestOf, s.WaitlistEnabled,
		s.AllowDraws, s.AllowSubstitutes, s.DoubleRoundRobin, s.Visibility, s.Locked,
	)
	if err != nil {
		return fmt.Errorf("failed to create tournament settings: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetSettings(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentSettings, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, check_in_open_mins, check_in_close_mins,
		       round_duration_mins, round_gap_mins, best_of, waitlist_enabled,
		       allow_draws, allow_substitutes, double_round_robin, visibility, locked
		FROM tournament_settings WHERE tournament_id = $1`
	s := &models.TournamentSettings{}
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&s.TournamentID, &s.CheckInOpenMins, &s.CheckInCloseMins,
		&s.RoundDurationMins, &s.RoundGapMins, &s.BestOf, &s.WaitlistEnabled,
		&s.AllowDraws, &s.AllowSubstitutes, &s.DoubleRoundRobin, &s.Visibility, &s.Locked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament settings: %w", err)
	}
	return s, nil
}

func (r *postgresTournamentRepository) UpdateSettings(ctx context.Context, s *models.TournamentSettings) error {
	query := `
		UPDATE tournament_settings SET
			check_in_open_mins = $1, check_in_close_mins = $2,
			round_duration_mins = $3, round_gap_mins = $4, best_of = $5,
			waitlist_enabled = $6, allow_draws = $7, allow_substitutes = $8,
			double_round_robin = $9, visibility = $10
		WHERE tournament_id = $11 AND locked = FALSE`
	result, err := r.db.ExecContext(ctx, query,
		s.CheckInOpenMins, s.CheckInCloseMins, s.RoundDurationMins,
		s.RoundGapMins, s.BestOf, s.WaitlistEnabled, s.AllowDraws,
		s.AllowSubstitutes, s.DoubleRoundRobin, s.Visibility, s.TournamentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament settings: %w", err)
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}

func (r *postgresTournamentRepository) LockSettings(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournament_settings SET locked = TRUE WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to lock tournament settings: %w", err)
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "tournaments_slug_key" {
				return ErrTournamentSlugConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		}
	}
	return fmt.Errorf("tournament repository: %w", err)
}
