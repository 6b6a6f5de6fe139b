package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
	"golang.org/x/sync/errgroup"
)

// validTournamentTransitions is the lifecycle edge set. Anything not
// listed is rejected with ErrTournamentInvalidStatusTransition.
var validTournamentTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:     {models.StatusPublished, models.StatusCanceled},
	models.StatusPublished: {models.StatusRunning, models.StatusCanceled},
	models.StatusRunning:   {models.StatusCompleted, models.StatusCanceled},
	models.StatusCompleted: {models.StatusArchived},
}

func transitionAllowed(from, to models.TournamentStatus) bool {
	for _, allowed := range validTournamentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type CreateTournamentInput struct {
	Name        string
	Slug        string
	Game        string
	Description *string
	OrganizerID int
	Format      models.TournamentFormat
	SlotSize    int
	RegOpenAt   time.Time
	RegCloseAt  time.Time
	StartAt     time.Time
	EndAt       time.Time
	Settings    *models.TournamentSettings
}

type TournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	notifier       Notifier
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

func validateTournamentDates(regOpen, regClose, start, end time.Time) error {
	if !regClose.After(regOpen) {
		return ErrTournamentInvalidRegDate
	}
	if regClose.After(start) {
		return ErrTournamentRegAfterStart
	}
	if !end.After(start) {
		return ErrTournamentInvalidDateRange
	}
	return nil
}

func defaultSettings(tournamentID int) *models.TournamentSettings {
	return &models.TournamentSettings{
		TournamentID:      tournamentID,
		CheckInOpenMins:   30,
		CheckInCloseMins:  10,
		RoundDurationMins: 60,
		RoundGapMins:      15,
		BestOf:            1,
		WaitlistEnabled:   true,
		Visibility:        "public",
	}
}

// Create persists a draft tournament together with its settings row.
func (s *TournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.SlotSize < 2 {
		return nil, ErrTournamentInvalidSlotSize
	}
	if err := validateTournamentDates(input.RegOpenAt, input.RegCloseAt, input.StartAt, input.EndAt); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Slug:        input.Slug,
		Game:        input.Game,
		Description: input.Description,
		OrganizerID: input.OrganizerID,
		Format:      input.Format,
		SlotSize:    input.SlotSize,
		RegOpenAt:   input.RegOpenAt,
		RegCloseAt:  input.RegCloseAt,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
		Status:      models.StatusDraft,
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if createErr := s.tournamentRepo.Create(ctx, tx, tournament); createErr != nil {
			return createErr
		}
		settings := input.Settings
		if settings == nil {
			settings = defaultSettings(tournament.ID)
		} else {
			settings.TournamentID = tournament.ID
			settings.Locked = false
		}
		if settingsErr := s.tournamentRepo.CreateSettings(ctx, tx, settings); settingsErr != nil {
			return settingsErr
		}
		tournament.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("slug", tournament.Slug),
		slog.String("format", string(tournament.Format)))
	return tournament, nil
}

func (s *TournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.attachDetails(ctx, tournament)
}

func (s *TournamentService) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.attachDetails(ctx, tournament)
}

// attachDetails loads settings and the organizer concurrently.
func (s *TournamentService) attachDetails(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		settings, err := s.tournamentRepo.GetSettings(gctx, nil, tournament.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrSettingsNotFound) {
				return nil
			}
			return err
		}
		tournament.Settings = settings
		return nil
	})
	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gctx, tournament.OrganizerID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil
			}
			return err
		}
		tournament.Organizer = organizer
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// Update edits tournament fields. Only drafts are freely editable; a
// published tournament keeps its structure.
func (s *TournamentService) Update(ctx context.Context, id int, organizerID int, apply func(*models.Tournament)) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.StatusDraft {
		return nil, ErrTournamentInvalidStatusTransition
	}

	apply(tournament)

	if tournament.SlotSize < 2 {
		return nil, ErrTournamentInvalidSlotSize
	}
	if err := validateTournamentDates(tournament.RegOpenAt, tournament.RegCloseAt, tournament.StartAt, tournament.EndAt); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return tournament, nil
}

func (s *TournamentService) UpdateSettings(ctx context.Context, tournamentID, organizerID int, settings *models.TournamentSettings) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return ErrForbiddenOperation
	}
	settings.TournamentID = tournamentID
	if err := s.tournamentRepo.UpdateSettings(ctx, settings); err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			// Either the row is missing or it is locked by generation.
			return ErrBracketLocked
		}
		return err
	}
	return nil
}

// Transition moves a tournament along the lifecycle edge set.
func (s *TournamentService) Transition(ctx context.Context, id int, organizerID int, to models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}
	if !transitionAllowed(tournament.Status, to) {
		return nil, ErrTournamentInvalidStatusTransition
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, to); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	tournament.Status = to

	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id), slog.String("status", string(to)))
	s.notifier.BroadcastTournament(id, brackets.EventTournamentUpdate, tournament)
	return tournament, nil
}

// AutoStatusSweep moves published tournaments whose start time has
// passed into running. Invoked by the background ticker; idempotent.
func (s *TournamentService) AutoStatusSweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.tournamentRepo.ListDueForStart(ctx, now)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, tournament := range due {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.StatusRunning); err != nil {
			s.logger.Error("auto start failed",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
			continue
		}
		started++
		s.logger.Info("tournament auto-started", slog.Int("tournament_id", tournament.ID))
		s.notifier.BroadcastTournament(tournament.ID, brackets.EventTournamentUpdate,
			map[string]interface{}{"id": tournament.ID, "status": models.StatusRunning})
	}
	return started, nil
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrTournamentSlugConflict):
		return fmt.Errorf("%w: slug already in use", ErrValidationFailed)
	case errors.Is(err, repositories.ErrTournamentInvalidOrg):
		return fmt.Errorf("%w: organizer does not exist", ErrValidationFailed)
	default:
		return err
	}
}
