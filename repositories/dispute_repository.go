package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deltacrown/deltacrown/models"
)

var (
	ErrDisputeNotFound  = errors.New("match dispute not found")
	ErrEvidenceNotFound = errors.New("dispute evidence not found")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, d *models.MatchDispute) error
	GetByID(ctx context.Context, id int) (*models.MatchDispute, error)
	FindOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchDispute, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.DisputeStatus) ([]*models.MatchDispute, error)
	Resolve(ctx context.Context, exec SQLExecutor, id int, resolution string, resolvedByID int, resolvedAt time.Time) error

	AddEvidence(ctx context.Context, e *models.DisputeEvidence) error
	ListEvidence(ctx context.Context, disputeID int) ([]models.DisputeEvidence, error)
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `
	id, match_id, tournament_id, opened_by_id, status, reason, resolution,
	resolved_by_id, created_at, resolved_at`

func (r *postgresDisputeRepository) scanDispute(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.MatchDispute, error) {
	d := &models.MatchDispute{}
	err := rowScanner.Scan(
		&d.ID, &d.MatchID, &d.TournamentID, &d.OpenedByID, &d.Status,
		&d.Reason, &d.Resolution, &d.ResolvedByID, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to scan dispute: %w", err)
	}
	return d, nil
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, d *models.MatchDispute) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_disputes (match_id, tournament_id, opened_by_id, status, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := executor.QueryRowContext(ctx, query,
		d.MatchID, d.TournamentID, d.OpenedByID, d.Status, d.Reason,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, id int) (*models.MatchDispute, error) {
	query := `SELECT` + disputeColumns + ` FROM match_disputes WHERE id = $1`
	return r.scanDispute(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresDisputeRepository) FindOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchDispute, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + disputeColumns + ` FROM match_disputes WHERE match_id = $1 AND status = $2`
	return r.scanDispute(executor.QueryRowContext(ctx, query, matchID, models.DisputeOpen))
}

func (r *postgresDisputeRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.DisputeStatus) ([]*models.MatchDispute, error) {
	query := `SELECT` + disputeColumns + ` FROM match_disputes WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if statusFilter != nil {
		args = append(args, *statusFilter)
		query += ` AND status = $2`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	disputes := make([]*models.MatchDispute, 0)
	for rows.Next() {
		d, scanErr := r.scanDispute(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, id int, resolution string, resolvedByID int, resolvedAt time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE match_disputes
		SET status = $1, resolution = $2, resolved_by_id = $3, resolved_at = $4
		WHERE id = $5 AND status = $6`,
		models.DisputeResolved, resolution, resolvedByID, resolvedAt, id, models.DisputeOpen)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) AddEvidence(ctx context.Context, e *models.DisputeEvidence) error {
	query := `
		INSERT INTO dispute_evidence (dispute_id, uploader_id, object_key, content_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.DisputeID, e.UploaderID, e.ObjectKey, e.ContentType,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add dispute evidence: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) ListEvidence(ctx context.Context, disputeID int) ([]models.DisputeEvidence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dispute_id, uploader_id, object_key, content_type, created_at
		FROM dispute_evidence
		WHERE dispute_id = $1
		ORDER BY created_at ASC, id ASC`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispute evidence: %w", err)
	}
	defer rows.Close()

	evidence := make([]models.DisputeEvidence, 0)
	for rows.Next() {
		var e models.DisputeEvidence
		if scanErr := rows.Scan(
			&e.ID, &e.DisputeID, &e.UploaderID, &e.ObjectKey,
			&e.ContentType, &e.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan evidence row: %w", scanErr)
		}
		evidence = append(evidence, e)
	}
	return evidence, rows.Err()
}
