package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService struct {
	db               *sql.DB
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	matchService     *MatchService
	notifier         Notifier
	logger           *slog.Logger
	now              func() time.Time
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	matchService *MatchService,
	notifier Notifier,
	logger *slog.Logger,
) *BracketService {
	return &BracketService{
		db:               db,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		matchService:     matchService,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

// Generate builds and persists the full match topology from confirmed
// registrations. Regeneration is allowed until any non-bye match has
// progressed; after that the bracket is locked. Generation also locks
// the tournament settings so round timing cannot shift under a live
// schedule.
func (s *BracketService) Generate(ctx context.Context, tournamentID, organizerID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.StatusPublished && tournament.Status != models.StatusRunning {
		return nil, ErrTournamentInvalidStatusTransition
	}
	if s.now().Before(tournament.RegCloseAt) {
		return nil, ErrRegistrationWindowClosed
	}

	generator, err := brackets.ForFormat(tournament.Format)
	if err != nil {
		return nil, ErrBracketTypeUnsupported
	}

	statusConfirmed := models.RegistrationConfirmed
	entrants, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &statusConfirmed)
	if err != nil {
		return nil, err
	}
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	slots, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament: tournament,
		Entrants:   entrants,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughEntrants) {
			return nil, ErrNotEnoughEntrants
		}
		if errors.Is(err, brackets.ErrTypeUnsupported) {
			return nil, ErrBracketTypeUnsupported
		}
		return nil, err
	}

	settings, err := s.tournamentRepo.GetSettings(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	var created []*models.Match
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		progressed, err := s.matchRepo.HasProgressed(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if progressed {
			return ErrBracketLocked
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return err
		}

		created, err = s.persistSlots(ctx, tx, tournament, settings, slots)
		if err != nil {
			return err
		}

		if !settings.Locked {
			if err := s.tournamentRepo.LockSettings(ctx, tx, tournamentID); err != nil {
				return err
			}
			settings.Locked = true
		}

		// Byes resolve immediately: the sole entrant advances before
		// anyone plays.
		for _, match := range created {
			if match.IsBye && match.State == models.MatchVerified {
				if err := s.matchService.cascade(ctx, tx, match, settings); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(tournament.Format)),
		slog.Int("matches", len(created)),
		slog.Int("entrants", len(entrants)))
	s.notifier.BroadcastTournament(tournamentID, brackets.EventBracketGenerated,
		map[string]interface{}{"tournament_id": tournamentID, "matches": len(created)})
	return created, nil
}

// persistSlots inserts matches round by round. Slots are generated in
// round order, so source matches always have IDs before the match they
// feed; each insert then backfills next_match_id on its sources.
func (s *BracketService) persistSlots(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, settings *models.TournamentSettings, slots []*brackets.SlotMatch) ([]*models.Match, error) {
	uidToMatch := make(map[string]*models.Match, len(slots))
	created := make([]*models.Match, 0, len(slots))

	for _, slot := range slots {
		match := &models.Match{
			TournamentID: tournament.ID,
			SlotUID:      slot.UID,
			RoundNo:      slot.Round,
			Position:     slot.OrderInRound,
			BestOf:       settings.BestOf,
			State:        models.MatchScheduled,
			IsBye:        slot.IsBye,
			EntrantAID:   slot.EntrantA,
			EntrantBID:   slot.EntrantB,
		}
		if slot.IsBye {
			match.State = models.MatchVerified
			match.WinnerID = slot.EntrantA
		}
		if slot.SourceAUID != nil {
			if source, ok := uidToMatch[*slot.SourceAUID]; ok {
				match.SourceAID = &source.ID
			}
		}
		if slot.SourceBUID != nil {
			if source, ok := uidToMatch[*slot.SourceBUID]; ok {
				match.SourceBID = &source.ID
			}
		}

		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, err
		}
		uidToMatch[slot.UID] = match
		created = append(created, match)

		if slot.SourceAUID != nil {
			if source, ok := uidToMatch[*slot.SourceAUID]; ok {
				if err := s.matchRepo.UpdateLinks(ctx, tx, source.ID, &match.ID, intPtr(1)); err != nil {
					return nil, err
				}
				source.NextMatchID, source.NextSlot = &match.ID, intPtr(1)
			}
		}
		if slot.SourceBUID != nil {
			if source, ok := uidToMatch[*slot.SourceBUID]; ok {
				if err := s.matchRepo.UpdateLinks(ctx, tx, source.ID, &match.ID, intPtr(2)); err != nil {
					return nil, err
				}
				source.NextMatchID, source.NextSlot = &match.ID, intPtr(2)
			}
		}
	}
	return created, nil
}

// GetFullBracket returns the tournament with registrations and matches
// attached, fetched concurrently.
func (s *BracketService) GetFullBracket(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registrations, err := s.registrationRepo.ListByTournament(gctx, tournamentID, nil)
		if err != nil {
			return err
		}
		tournament.Registrations = make([]models.Registration, 0, len(registrations))
		for _, reg := range registrations {
			tournament.Registrations = append(tournament.Registrations, *reg)
		}
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, tournamentID, nil, nil)
		if err != nil {
			return err
		}
		tournament.Matches = make([]models.Match, 0, len(matches))
		for _, match := range matches {
			tournament.Matches = append(tournament.Matches, *match)
		}
		return nil
	})
	g.Go(func() error {
		settings, err := s.tournamentRepo.GetSettings(gctx, nil, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrSettingsNotFound) {
				return nil
			}
			return err
		}
		tournament.Settings = settings
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}
