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
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchSlotUIDConflict = errors.New("match slot uid conflict for this tournament")
	ErrMatchEntrantInvalid  = errors.New("match entrant conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row so a state transition and its
	// side effects commit as one unit.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, stateFilter *models.MatchState) ([]*models.Match, error)
	ListUnscheduled(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	// ListResolvedByTeam returns verified and completed matches involving
	// any of the team's registrations, in chronological order.
	ListResolvedByTeam(ctx context.Context, teamID int) ([]*models.Match, error)
	// HasProgressed reports whether any non-bye match moved past
	// SCHEDULED, which locks the bracket topology.
	HasProgressed(ctx context.Context, exec SQLExecutor, tournamentID int) (bool, error)
	CountByStates(ctx context.Context, exec SQLExecutor, tournamentID int, states ...models.MatchState) (int, error)

	// DeleteByTournament clears the bracket, used only for regeneration
	// before any match has progressed.
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error

	UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot *int) error
	SetEntrant(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int) error
	UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error
	SaveReport(ctx context.Context, exec SQLExecutor, id int, side string, report models.ScoreReport, state models.MatchState) error
	SetOutcome(ctx context.Context, exec SQLExecutor, id int, state models.MatchState, scoreA, scoreB, winnerID *int) error
	UpdateStartAt(ctx context.Context, exec SQLExecutor, id int, startAt time.Time) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, slot_uid, round_no, position, best_of, state, is_bye,
	entrant_a_id, entrant_b_id, source_a_id, source_b_id, next_match_id, next_slot,
	start_at, a_score_a, a_score_b, b_score_a, b_score_b, score_a, score_b,
	winner_id, created_at`

func (r *postgresMatchRepository) scanMatch(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Match, error) {
	m := &models.Match{}
	var aScoreA, aScoreB, bScoreA, bScoreB *int
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.SlotUID, &m.RoundNo, &m.Position,
		&m.BestOf, &m.State, &m.IsBye,
		&m.EntrantAID, &m.EntrantBID, &m.SourceAID, &m.SourceBID,
		&m.NextMatchID, &m.NextSlot, &m.StartAt,
		&aScoreA, &aScoreB, &bScoreA, &bScoreB,
		&m.ScoreA, &m.ScoreB, &m.WinnerID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if aScoreA != nil && aScoreB != nil {
		m.ReportA = &models.ScoreReport{ScoreA: *aScoreA, ScoreB: *aScoreB}
	}
	if bScoreA != nil && bScoreB != nil {
		m.ReportB = &models.ScoreReport{ScoreA: *bScoreA, ScoreB: *bScoreB}
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, slot_uid, round_no, position, best_of, state, is_bye,
			 entrant_a_id, entrant_b_id, source_a_id, source_b_id, start_at,
			 score_a, score_b, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.SlotUID, m.RoundNo, m.Position, m.BestOf, m.State,
		m.IsBye, m.EntrantAID, m.EntrantBID, m.SourceAID, m.SourceBID,
		m.StartAt, m.ScoreA, m.ScoreB, m.WinnerID,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, stateFilter *models.MatchState) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}

	if roundFilter != nil {
		args = append(args, *roundFilter)
		queryBuilder.WriteString(fmt.Sprintf(" AND round_no = $%d", len(args)))
	}
	if stateFilter != nil {
		args = append(args, *stateFilter)
		queryBuilder.WriteString(fmt.Sprintf(" AND state = $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY round_no ASC, position ASC")

	return r.queryMatches(ctx, r.db, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListUnscheduled(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND start_at IS NULL AND is_bye = FALSE
		ORDER BY round_no ASC, position ASC`
	return r.queryMatches(ctx, executor, query, tournamentID)
}

func (r *postgresMatchRepository) ListResolvedByTeam(ctx context.Context, teamID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m
		WHERE m.is_bye = FALSE
		  AND m.state IN ($2, $3)
		  AND EXISTS (
			SELECT 1 FROM registrations reg
			WHERE reg.team_id = $1 AND reg.id IN (m.entrant_a_id, m.entrant_b_id)
		  )
		ORDER BY m.start_at ASC NULLS LAST, m.id ASC`
	return r.queryMatches(ctx, r.db, query, teamID, models.MatchVerified, models.MatchCompleted)
}

func (r *postgresMatchRepository) HasProgressed(ctx context.Context, exec SQLExecutor, tournamentID int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE tournament_id = $1 AND is_bye = FALSE AND state <> $2
		)`, tournamentID, models.MatchScheduled,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check match progress: %w", err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) CountByStates(ctx context.Context, exec SQLExecutor, tournamentID int, states ...models.MatchState) (int, error) {
	executor := r.getExecutor(exec)
	stateArgs := make([]string, 0, len(states))
	for _, s := range states {
		stateArgs = append(stateArgs, string(s))
	}
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND state = ANY($2)`,
		tournamentID, pq.Array(stateArgs),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, next_slot = $2 WHERE id = $3`,
		nextMatchID, nextSlot, id)
	if err != nil {
		return fmt.Errorf("failed to update links for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetEntrant(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int) error {
	executor := r.getExecutor(exec)
	column := "entrant_a_id"
	if slot == 2 {
		column = "entrant_b_id"
	}
	result, err := executor.ExecContext(ctx,
		fmt.Sprintf(`UPDATE matches SET %s = $1 WHERE id = $2`, column),
		registrationID, id)
	if err != nil {
		return fmt.Errorf("failed to set entrant for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.MatchState) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return fmt.Errorf("failed to update state for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SaveReport(ctx context.Context, exec SQLExecutor, id int, side string, report models.ScoreReport, state models.MatchState) error {
	executor := r.getExecutor(exec)
	var query string
	switch side {
	case "a":
		query = `UPDATE matches SET a_score_a = $1, a_score_b = $2, state = $3 WHERE id = $4`
	case "b":
		query = `UPDATE matches SET b_score_a = $1, b_score_b = $2, state = $3 WHERE id = $4`
	default:
		return fmt.Errorf("invalid report side %q", side)
	}
	result, err := executor.ExecContext(ctx, query, report.ScoreA, report.ScoreB, state, id)
	if err != nil {
		return fmt.Errorf("failed to save report for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetOutcome(ctx context.Context, exec SQLExecutor, id int, state models.MatchState, scoreA, scoreB, winnerID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET state = $1, score_a = $2, score_b = $3, winner_id = $4 WHERE id = $5`,
		state, scoreA, scoreB, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to set outcome for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStartAt(ctx context.Context, exec SQLExecutor, id int, startAt time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET start_at = $1 WHERE id = $2`, startAt, id)
	if err != nil {
		return fmt.Errorf("failed to update start_at for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "uq_matches_tournament_slot_uid" {
				return ErrMatchSlotUIDConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "matches_entrant_a_id_fkey", "matches_entrant_b_id_fkey", "matches_winner_id_fkey":
				return ErrMatchEntrantInvalid
			}
		}
	}
	return fmt.Errorf("match repository: %w", err)
}
