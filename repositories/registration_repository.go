package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/deltacrown/deltacrown/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: entrant already registered for this tournament")
	ErrRegistrationEntrantViolation  = errors.New("registration entrant violation: exactly one of user_id or team_id must be set")
	ErrRegistrationUserInvalid       = errors.New("registration user conflict or invalid")
	ErrRegistrationTeamInvalid       = errors.New("registration team conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	FindActiveByUser(ctx context.Context, tournamentID, userID int) (*models.Registration, error)
	FindActiveByTeam(ctx context.Context, tournamentID, teamID int) (*models.Registration, error)
	// ListByTournament returns registrations in seed order: explicit seed
	// rank ascending first, then registration id ascending.
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error
	UpdatePaymentStatus(ctx context.Context, exec SQLExecutor, id int, status models.PaymentStatus) error
	// OldestWaitlisted returns the longest-waiting payment-verified
	// waitlisted registration, or ErrRegistrationNotFound.
	OldestWaitlisted(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `id, tournament_id, user_id, team_id, status, payment_status, seed, created_at`

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := rowScanner.Scan(
		&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamID,
		&reg.Status, &reg.PaymentStatus, &reg.Seed, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO registrations (tournament_id, user_id, team_id, status, payment_status, seed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		reg.TournamentID, reg.UserID, reg.TeamID, reg.Status, reg.PaymentStatus, reg.Seed,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation: partial indexes on active registrations
				if pqErr.Constraint == "uq_registrations_active_user" ||
					pqErr.Constraint == "uq_registrations_active_team" {
					return ErrRegistrationConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				case "registrations_team_id_fkey":
					return ErrRegistrationTeamInvalid
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				}
			case "23514": // check_violation
				if pqErr.Constraint == "chk_registration_entrant" {
					return ErrRegistrationEntrantViolation
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.scanRegistration(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresRegistrationRepository) FindActiveByUser(ctx context.Context, tournamentID, userID int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE tournament_id = $1 AND user_id = $2 AND status <> $3`
	return r.scanRegistration(r.db.QueryRowContext(ctx, query, tournamentID, userID, models.RegistrationWithdrawn))
}

func (r *postgresRegistrationRepository) FindActiveByTeam(ctx context.Context, tournamentID, teamID int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE tournament_id = $1 AND team_id = $2 AND status <> $3`
	return r.scanRegistration(r.db.QueryRowContext(ctx, query, tournamentID, teamID, models.RegistrationWithdrawn))
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}

	if statusFilter != nil {
		args = append(args, *statusFilter)
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY seed ASC NULLS LAST, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg, scanErr := r.scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func (r *postgresRegistrationRepository) CountByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RegistrationStatus) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE tournament_id = $1 AND status = $2`,
		tournamentID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE registrations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdatePaymentStatus(ctx context.Context, exec SQLExecutor, id int, status models.PaymentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE registrations SET payment_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration payment status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) OldestWaitlisted(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE tournament_id = $1 AND status = $2 AND payment_status = $3
		ORDER BY created_at ASC, id ASC
		LIMIT 1`
	return r.scanRegistration(executor.QueryRowContext(ctx, query,
		tournamentID, models.RegistrationWaitlisted, models.PaymentVerified))
}
