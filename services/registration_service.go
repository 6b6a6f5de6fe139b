package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

type RegisterInput struct {
	TournamentID int
	UserID       *int
	TeamID       *int
}

type RegistrationService struct {
	db               *sql.DB
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	teamRepo         repositories.TeamRepository
	matchService     *MatchService
	notifier         Notifier
	logger           *slog.Logger
	now              func() time.Time
}

func NewRegistrationService(
	db *sql.DB,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchService *MatchService,
	notifier Notifier,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		db:               db,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		teamRepo:         teamRepo,
		matchService:     matchService,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

// Register creates a pending registration. Capacity is not checked
// here: the confirmed/waitlisted decision happens at payment
// verification, under the tournament row lock.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*models.Registration, error) {
	if (input.UserID == nil) == (input.TeamID == nil) {
		return nil, ErrEntrantAmbiguous
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status != models.StatusPublished {
		return nil, ErrRegistrationWindowClosed
	}
	if !tournament.RegistrationWindowOpen(s.now()) {
		return nil, ErrRegistrationWindowClosed
	}

	registration := &models.Registration{
		TournamentID:  input.TournamentID,
		UserID:        input.UserID,
		TeamID:        input.TeamID,
		Status:        models.RegistrationPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	if err := s.registrationRepo.Create(ctx, nil, registration); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrRegistrationEntrantViolation):
			return nil, ErrEntrantAmbiguous
		case errors.Is(err, repositories.ErrRegistrationUserInvalid),
			errors.Is(err, repositories.ErrRegistrationTeamInvalid),
			errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
			return nil, ErrValidationFailed
		}
		return nil, err
	}

	s.logger.Info("registration created",
		slog.Int("registration_id", registration.ID),
		slog.Int("tournament_id", registration.TournamentID))
	return registration, nil
}

// SubmitPayment moves a registration's payment from unpaid to pending.
func (s *RegistrationService) SubmitPayment(ctx context.Context, registrationID int) error {
	registration, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return mapRegistrationRepoError(err)
	}
	if registration.Terminal() {
		return ErrRegistrationTerminal
	}
	if registration.PaymentStatus != models.PaymentUnpaid &&
		registration.PaymentStatus != models.PaymentRejected {
		return ErrPaymentNotVerifiable
	}
	return mapRegistrationRepoError(
		s.registrationRepo.UpdatePaymentStatus(ctx, nil, registrationID, models.PaymentPending))
}

// VerifyPayment is the organizer's accept/reject decision. On approval
// the confirmed/waitlisted split happens here: the tournament row is
// locked, confirmed registrations are counted under that lock, and the
// slot is granted or waitlisted in the same transaction. Two concurrent
// verifications therefore serialize and the slot count never exceeds
// slot_size.
func (s *RegistrationService) VerifyPayment(ctx context.Context, registrationID, organizerID int, approve bool) (*models.Registration, error) {
	var registration *models.Registration

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		registration, err = s.registrationRepo.GetByID(ctx, tx, registrationID)
		if err != nil {
			return mapRegistrationRepoError(err)
		}
		if registration.Terminal() {
			return ErrRegistrationTerminal
		}
		if registration.PaymentStatus != models.PaymentPending {
			return ErrPaymentNotVerifiable
		}

		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, registration.TournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.OrganizerID != organizerID {
			return ErrForbiddenOperation
		}

		if !approve {
			if err := s.registrationRepo.UpdatePaymentStatus(ctx, tx, registrationID, models.PaymentRejected); err != nil {
				return err
			}
			registration.PaymentStatus = models.PaymentRejected
			if err := s.registrationRepo.UpdateStatus(ctx, tx, registrationID, models.RegistrationRejected); err != nil {
				return err
			}
			registration.Status = models.RegistrationRejected
			return nil
		}

		settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournament.ID)
		if err != nil {
			return err
		}

		confirmed, err := s.registrationRepo.CountByStatus(ctx, tx, tournament.ID, models.RegistrationConfirmed)
		if err != nil {
			return err
		}

		var nextStatus models.RegistrationStatus
		switch {
		case confirmed < tournament.SlotSize:
			nextStatus = models.RegistrationConfirmed
		case settings.WaitlistEnabled:
			nextStatus = models.RegistrationWaitlisted
		default:
			return ErrTournamentFull
		}

		if err := s.registrationRepo.UpdatePaymentStatus(ctx, tx, registrationID, models.PaymentVerified); err != nil {
			return err
		}
		registration.PaymentStatus = models.PaymentVerified
		if err := s.registrationRepo.UpdateStatus(ctx, tx, registrationID, nextStatus); err != nil {
			return err
		}
		registration.Status = nextStatus

		nType := models.NotificationRegConfirmed
		if nextStatus == models.RegistrationWaitlisted {
			nType = models.NotificationRegWaitlisted
		}
		if recipient := s.notificationRecipient(ctx, registration); recipient != 0 {
			s.notifier.Notify(ctx, tx, recipient, nType,
				map[string]interface{}{"tournament_id": tournament.ID, "registration_id": registration.ID}, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registration, nil
}

// Withdraw retires a registration. Before the bracket locks this frees
// the slot and promotes the oldest payment-verified waitlisted entrant;
// after lock the entrant's unresolved matches are forfeited instead.
func (s *RegistrationService) Withdraw(ctx context.Context, registrationID int, actorUserID int) error {
	registration, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return mapRegistrationRepoError(err)
	}
	if registration.Terminal() {
		return ErrRegistrationTerminal
	}
	if allowed, err := s.actorOwnsRegistration(ctx, registration, actorUserID); err != nil {
		return err
	} else if !allowed {
		return ErrForbiddenOperation
	}

	wasConfirmed := registration.Status == models.RegistrationConfirmed
	var bracketLocked bool

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, registration.TournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournament.ID)
		if err != nil {
			return err
		}
		bracketLocked = settings.Locked

		if err := s.registrationRepo.UpdateStatus(ctx, tx, registrationID, models.RegistrationWithdrawn); err != nil {
			return err
		}

		// Promotion only makes sense while seats are still fluid.
		if wasConfirmed && !bracketLocked && settings.WaitlistEnabled {
			next, err := s.registrationRepo.OldestWaitlisted(ctx, tx, tournament.ID)
			if err != nil {
				if errors.Is(err, repositories.ErrRegistrationNotFound) {
					return nil
				}
				return err
			}
			if err := s.registrationRepo.UpdateStatus(ctx, tx, next.ID, models.RegistrationConfirmed); err != nil {
				return err
			}
			if recipient := s.notificationRecipient(ctx, next); recipient != 0 {
				s.notifier.Notify(ctx, tx, recipient, models.NotificationRegConfirmed,
					map[string]interface{}{"tournament_id": tournament.ID, "registration_id": next.ID, "promoted": true}, nil)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// A withdrawal after the bracket locked forfeits remaining matches.
	if wasConfirmed && bracketLocked {
		if err := s.matchService.ForfeitRegistration(ctx, registration.TournamentID, registrationID); err != nil {
			s.logger.Error("withdrawal forfeit failed",
				slog.Int("registration_id", registrationID), slog.Any("error", err))
			return err
		}
	}
	s.logger.Info("registration withdrawn", slog.Int("registration_id", registrationID))
	return nil
}

func (s *RegistrationService) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}
	return registration, nil
}

func (s *RegistrationService) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	return s.registrationRepo.ListByTournament(ctx, tournamentID, statusFilter)
}

// ActorOwns reports whether the acting user controls the registration:
// they registered solo, or they captain the registered team.
func (s *RegistrationService) ActorOwns(ctx context.Context, registrationID, actorUserID int) (bool, error) {
	registration, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return false, mapRegistrationRepoError(err)
	}
	return s.actorOwnsRegistration(ctx, registration, actorUserID)
}

// actorOwnsRegistration reports whether the acting user registered
// solo, or captains the registered team.
func (s *RegistrationService) actorOwnsRegistration(ctx context.Context, registration *models.Registration, actorUserID int) (bool, error) {
	if registration.UserID != nil {
		return *registration.UserID == actorUserID, nil
	}
	if registration.TeamID != nil {
		team, err := s.teamRepo.GetByID(ctx, *registration.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return false, nil
			}
			return false, err
		}
		return team.CaptainID == actorUserID, nil
	}
	return false, nil
}

// notificationRecipient resolves who gets notified for a registration:
// the solo user, or the team captain.
func (s *RegistrationService) notificationRecipient(ctx context.Context, registration *models.Registration) int {
	if registration.UserID != nil {
		return *registration.UserID
	}
	if registration.TeamID != nil {
		team, err := s.teamRepo.GetByID(ctx, *registration.TeamID)
		if err != nil {
			s.logger.Warn("recipient lookup failed",
				slog.Int("team_id", *registration.TeamID), slog.Any("error", err))
			return 0
		}
		return team.CaptainID
	}
	return 0
}

func mapRegistrationRepoError(err error) error {
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return ErrNotFound
	}
	return err
}
