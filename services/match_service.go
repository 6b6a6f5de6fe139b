package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

type MatchService struct {
	db               *sql.DB
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	disputeRepo      repositories.DisputeRepository
	notifier         Notifier
	logger           *slog.Logger
	now              func() time.Time
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	disputeRepo repositories.DisputeRepository,
	notifier Notifier,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		db:               db,
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		disputeRepo:      disputeRepo,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *MatchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *MatchService) ListByTournament(ctx context.Context, tournamentID int, roundFilter *int, stateFilter *models.MatchState) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, roundFilter, stateFilter)
}

// matchStartGrace is how far ahead of its scheduled time a match may
// go live.
const matchStartGrace = 10 * time.Minute

// Start moves a match from scheduled to live. Both entrants must be
// known, bye matches never go live, and a scheduled start time is
// honored up to the grace window. Starting an already-live match is a
// no-op.
func (s *MatchService) Start(ctx context.Context, matchID int) (*models.Match, error) {
	var (
		match   *models.Match
		started bool
	)
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		if match.State == models.MatchLive {
			return nil
		}
		if match.State != models.MatchScheduled || match.IsBye {
			return ErrIllegalTransition
		}
		if match.EntrantAID == nil || match.EntrantBID == nil {
			return ErrMatchMissingEntrant
		}
		if match.StartAt != nil && s.now().Before(match.StartAt.Add(-matchStartGrace)) {
			return ErrMatchStartTooEarly
		}
		if err := s.matchRepo.UpdateState(ctx, tx, matchID, models.MatchLive); err != nil {
			return err
		}
		match.State = models.MatchLive
		started = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if started {
		s.notifier.BroadcastTournament(match.TournamentID, brackets.EventMatchUpdated, match)
	}
	return match, nil
}

// SubmitResult records one side's score claim. A scheduled match with
// both entrants accepts its first report directly; the first report
// moves the match to reported, and the second either verifies the
// result (the claims agree) or opens a dispute (they differ).
func (s *MatchService) SubmitResult(ctx context.Context, matchID, reporterRegistrationID int, report models.ScoreReport) (*models.Match, error) {
	if report.ScoreA < 0 || report.ScoreB < 0 {
		return nil, ErrInvalidScore
	}

	var (
		match    *models.Match
		disputed bool
	)
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		switch match.State {
		case models.MatchLive, models.MatchReported:
		case models.MatchScheduled:
			if match.IsBye {
				return ErrIllegalTransition
			}
			if match.EntrantAID == nil || match.EntrantBID == nil {
				return ErrMatchMissingEntrant
			}
		default:
			return ErrIllegalTransition
		}

		side := match.SideOf(reporterRegistrationID)
		if side == "" {
			return ErrReporterNotEntrant
		}
		if (side == "a" && match.ReportA != nil) || (side == "b" && match.ReportB != nil) {
			return ErrDuplicateReport
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, tx, match.TournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournament.ID)
		if err != nil {
			return err
		}
		if report.ScoreA == report.ScoreB &&
			(tournament.Format != models.FormatRoundRobin || !settings.AllowDraws) {
			return ErrDrawNotAllowed
		}

		if err := s.matchRepo.SaveReport(ctx, tx, matchID, side, report, models.MatchReported); err != nil {
			return err
		}
		if side == "a" {
			match.ReportA = &report
		} else {
			match.ReportB = &report
		}
		match.State = models.MatchReported

		if match.ReportA == nil || match.ReportB == nil {
			return nil
		}

		// Both sides have spoken.
		if *match.ReportA == *match.ReportB {
			return s.verifyAndCascade(ctx, tx, match, match.ReportA.ScoreA, match.ReportA.ScoreB, settings)
		}

		disputed = true
		if err := s.matchRepo.UpdateState(ctx, tx, matchID, models.MatchDisputed); err != nil {
			return err
		}
		match.State = models.MatchDisputed
		return s.openDispute(ctx, tx, match, reporterRegistrationID)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.BroadcastTournament(match.TournamentID, brackets.EventMatchUpdated, match)
	if disputed {
		s.logger.Info("match disputed",
			slog.Int("match_id", matchID), slog.Int("tournament_id", match.TournamentID))
	}
	return match, nil
}

func (s *MatchService) openDispute(ctx context.Context, tx *sql.Tx, match *models.Match, openedByRegistrationID int) error {
	if _, err := s.disputeRepo.FindOpenByMatch(ctx, tx, match.ID); err == nil {
		return ErrDisputeAlreadyOpen
	} else if !errors.Is(err, repositories.ErrDisputeNotFound) {
		return err
	}

	opener := s.recipientForRegistrationID(ctx, openedByRegistrationID)
	dispute := &models.MatchDispute{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		Status:       models.DisputeOpen,
		Reason:       "score reports disagree",
	}
	if opener != 0 {
		dispute.OpenedByID = &opener
	}
	if err := s.disputeRepo.Create(ctx, tx, dispute); err != nil {
		return err
	}

	for _, regID := range []*int{match.EntrantAID, match.EntrantBID} {
		if regID == nil {
			continue
		}
		if recipient := s.recipientForRegistrationID(ctx, *regID); recipient != 0 {
			s.notifier.Notify(ctx, tx, recipient, models.NotificationDisputeOpened,
				map[string]interface{}{"match_id": match.ID, "dispute_id": dispute.ID}, nil)
		}
	}
	return nil
}

// Verify is the organizer's direct ruling on a match: the supplied
// scores become final and the bracket advances. It covers a reported
// match whose opposing side never confirmed, and doubles as a dispute
// resolution when the match is disputed (the open dispute is closed
// with the ruling).
func (s *MatchService) Verify(ctx context.Context, matchID, organizerID int, finalScore models.ScoreReport) (*models.Match, error) {
	if finalScore.ScoreA < 0 || finalScore.ScoreB < 0 {
		return nil, ErrInvalidScore
	}

	var match *models.Match
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		if match.State != models.MatchReported && match.State != models.MatchDisputed {
			return ErrIllegalTransition
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, tx, match.TournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.OrganizerID != organizerID {
			return ErrForbiddenOperation
		}

		settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournament.ID)
		if err != nil {
			return err
		}
		if finalScore.ScoreA == finalScore.ScoreB &&
			(tournament.Format != models.FormatRoundRobin || !settings.AllowDraws) {
			return ErrDrawNotAllowed
		}

		if match.State == models.MatchDisputed {
			dispute, err := s.disputeRepo.FindOpenByMatch(ctx, tx, match.ID)
			if err != nil && !errors.Is(err, repositories.ErrDisputeNotFound) {
				return err
			}
			if err == nil {
				if err := s.disputeRepo.Resolve(ctx, tx, dispute.ID, "settled by organizer verification", organizerID, s.now()); err != nil {
					return err
				}
			}
		}
		return s.verifyAndCascade(ctx, tx, match, finalScore.ScoreA, finalScore.ScoreB, settings)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastTournament(match.TournamentID, brackets.EventMatchUpdated, match)
	return match, nil
}

// ResolveDispute is the organizer's ruling on a disputed match: the
// supplied scores become final and the bracket advances.
func (s *MatchService) ResolveDispute(ctx context.Context, disputeID, organizerID int, finalScore models.ScoreReport, resolution string) (*models.Match, error) {
	var match *models.Match
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		dispute, err := s.disputeRepo.GetByID(ctx, disputeID)
		if err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		if dispute.Status != models.DisputeOpen {
			return ErrDisputeNotOpen
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, tx, dispute.TournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.OrganizerID != organizerID {
			return ErrForbiddenOperation
		}

		match, err = s.matchRepo.GetByIDForUpdate(ctx, tx, dispute.MatchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		if match.State != models.MatchDisputed {
			return ErrIllegalTransition
		}

		settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournament.ID)
		if err != nil {
			return err
		}
		if finalScore.ScoreA == finalScore.ScoreB &&
			(tournament.Format != models.FormatRoundRobin || !settings.AllowDraws) {
			return ErrDrawNotAllowed
		}

		if err := s.disputeRepo.Resolve(ctx, tx, disputeID, resolution, organizerID, s.now()); err != nil {
			return err
		}
		if err := s.verifyAndCascade(ctx, tx, match, finalScore.ScoreA, finalScore.ScoreB, settings); err != nil {
			return err
		}

		for _, regID := range []*int{match.EntrantAID, match.EntrantBID} {
			if regID == nil {
				continue
			}
			if recipient := s.recipientForRegistrationID(ctx, *regID); recipient != 0 {
				s.notifier.Notify(ctx, tx, recipient, models.NotificationDisputeResolved,
					map[string]interface{}{"match_id": match.ID, "dispute_id": disputeID}, nil)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastTournament(match.TournamentID, brackets.EventMatchUpdated, match)
	return match, nil
}

// ForfeitRegistration walks the entrant's unresolved matches and awards
// them to the opponent. Matches whose opponent slot is still empty are
// left alone; the cascade auto-forfeits them when the opponent arrives.
func (s *MatchService) ForfeitRegistration(ctx context.Context, tournamentID, registrationID int) error {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil, nil)
	if err != nil {
		return err
	}

	for _, candidate := range matches {
		if candidate.Resolved() || candidate.SideOf(registrationID) == "" {
			continue
		}
		matchID := candidate.ID
		err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
			match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
			if err != nil {
				return mapMatchRepoError(err)
			}
			if match.Resolved() || match.State == models.MatchDisputed {
				return nil
			}
			side := match.SideOf(registrationID)
			if side == "" {
				return nil
			}

			var opponent *int
			if side == "a" {
				opponent = match.EntrantBID
			} else {
				opponent = match.EntrantAID
			}
			if opponent == nil {
				// Opponent slot still unresolved; handled on arrival.
				return nil
			}

			settings, err := s.tournamentRepo.GetSettings(ctx, tx, tournamentID)
			if err != nil {
				return err
			}
			return s.walkover(ctx, tx, match, *opponent, settings)
		})
		if err != nil {
			return err
		}
	}
	s.notifier.BroadcastTournament(tournamentID, brackets.EventMatchUpdated,
		map[string]interface{}{"forfeited_registration_id": registrationID})
	return nil
}

// walkover verifies a match without scores in favor of winnerID.
func (s *MatchService) walkover(ctx context.Context, tx *sql.Tx, match *models.Match, winnerID int, settings *models.TournamentSettings) error {
	if err := s.matchRepo.SetOutcome(ctx, tx, match.ID, models.MatchVerified, nil, nil, &winnerID); err != nil {
		return err
	}
	match.State = models.MatchVerified
	match.ScoreA, match.ScoreB = nil, nil
	match.WinnerID = &winnerID
	return s.cascade(ctx, tx, match, settings)
}

// verifyAndCascade finalizes the outcome and advances the bracket.
func (s *MatchService) verifyAndCascade(ctx context.Context, tx *sql.Tx, match *models.Match, scoreA, scoreB int, settings *models.TournamentSettings) error {
	var winnerID *int
	switch {
	case scoreA > scoreB:
		winnerID = match.EntrantAID
	case scoreB > scoreA:
		winnerID = match.EntrantBID
	}

	if err := s.matchRepo.SetOutcome(ctx, tx, match.ID, models.MatchVerified, &scoreA, &scoreB, winnerID); err != nil {
		return err
	}
	match.State = models.MatchVerified
	match.ScoreA, match.ScoreB = &scoreA, &scoreB
	match.WinnerID = winnerID

	for _, regID := range []*int{match.EntrantAID, match.EntrantBID} {
		if regID == nil {
			continue
		}
		if recipient := s.recipientForRegistrationID(ctx, *regID); recipient != 0 {
			s.notifier.Notify(ctx, tx, recipient, models.NotificationResultVerified,
				map[string]interface{}{"match_id": match.ID}, nil)
		}
	}
	return s.cascade(ctx, tx, match, settings)
}

// cascade completes verified matches and propagates winners with an
// explicit work list. Each pass completes one match, pushes its winner
// into the linked next slot, and requeues any match that became
// decidable (a bye, or a pairing against a withdrawn entrant).
func (s *MatchService) cascade(ctx context.Context, tx *sql.Tx, root *models.Match, settings *models.TournamentSettings) error {
	queue := []*models.Match{root}

	for len(queue) > 0 {
		match := queue[0]
		queue = queue[1:]

		if match.State != models.MatchVerified {
			continue
		}
		if err := s.matchRepo.UpdateState(ctx, tx, match.ID, models.MatchCompleted); err != nil {
			return err
		}
		match.State = models.MatchCompleted

		if match.NextMatchID == nil {
			continue
		}
		if match.WinnerID == nil {
			// Draw: nothing advances (round robin has no links anyway).
			continue
		}

		slot := 1
		if match.NextSlot != nil {
			slot = *match.NextSlot
		}
		if err := s.matchRepo.SetEntrant(ctx, tx, *match.NextMatchID, slot, match.WinnerID); err != nil {
			return err
		}

		next, err := s.matchRepo.GetByID(ctx, tx, *match.NextMatchID)
		if err != nil {
			return mapMatchRepoError(err)
		}
		decided, err := s.autoDecide(ctx, tx, next)
		if err != nil {
			return err
		}
		if decided {
			queue = append(queue, next)
		}
	}
	return s.maybeCompleteTournament(ctx, tx, root.TournamentID)
}

// autoDecide verifies a freshly-filled match that cannot be played:
// the other slot arrived withdrawn. Returns true when the match moved
// to verified and should join the cascade queue.
func (s *MatchService) autoDecide(ctx context.Context, tx *sql.Tx, match *models.Match) (bool, error) {
	if match.State != models.MatchScheduled || match.EntrantAID == nil || match.EntrantBID == nil {
		return false, nil
	}

	regA, err := s.registrationRepo.GetByID(ctx, tx, *match.EntrantAID)
	if err != nil {
		return false, mapRegistrationRepoError(err)
	}
	regB, err := s.registrationRepo.GetByID(ctx, tx, *match.EntrantBID)
	if err != nil {
		return false, mapRegistrationRepoError(err)
	}

	aOut := regA.Status == models.RegistrationWithdrawn
	bOut := regB.Status == models.RegistrationWithdrawn
	if !aOut && !bOut {
		return false, nil
	}

	var winnerID *int
	switch {
	case aOut && !bOut:
		winnerID = match.EntrantBID
	case bOut && !aOut:
		winnerID = match.EntrantAID
	}
	if err := s.matchRepo.SetOutcome(ctx, tx, match.ID, models.MatchVerified, nil, nil, winnerID); err != nil {
		return false, err
	}
	match.State = models.MatchVerified
	match.WinnerID = winnerID
	return true, nil
}

// maybeCompleteTournament closes the tournament once every match is
// done, recording the winner.
func (s *MatchService) maybeCompleteTournament(ctx context.Context, tx *sql.Tx, tournamentID int) error {
	total, err := s.matchRepo.CountByStates(ctx, tx, tournamentID,
		models.MatchScheduled, models.MatchLive, models.MatchReported,
		models.MatchVerified, models.MatchDisputed, models.MatchCompleted)
	if err != nil {
		return err
	}
	completed, err := s.matchRepo.CountByStates(ctx, tx, tournamentID, models.MatchCompleted)
	if err != nil {
		return err
	}
	if total == 0 || completed < total {
		return nil
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
	if err != nil {
		return mapTournamentRepoError(err)
	}
	if tournament.Status != models.StatusRunning {
		return nil
	}

	winnerID, err := s.tournamentWinner(ctx, tx, tournament)
	if err != nil {
		return err
	}
	if winnerID != nil {
		if err := s.tournamentRepo.SetWinner(ctx, tx, tournamentID, winnerID); err != nil {
			return err
		}
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StatusCompleted); err != nil {
		return err
	}
	s.logger.Info("tournament completed", slog.Int("tournament_id", tournamentID))

	if winnerID != nil {
		if recipient := s.recipientForRegistrationID(ctx, *winnerID); recipient != 0 {
			s.notifier.Notify(ctx, tx, recipient, models.NotificationTournamentCompleted,
				map[string]interface{}{"tournament_id": tournamentID, "winner_registration_id": *winnerID}, nil)
		}
	}
	return nil
}

// tournamentWinner picks the champion: the final's winner for
// elimination, the best win-loss record for round robin.
func (s *MatchService) tournamentWinner(ctx context.Context, tx *sql.Tx, tournament *models.Tournament) (*int, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	if err != nil {
		return nil, err
	}

	if tournament.Format.IsElimination() {
		for _, match := range matches {
			if match.NextMatchID == nil && !match.IsBye {
				return match.WinnerID, nil
			}
		}
		return nil, nil
	}

	type record struct {
		regID  int
		wins   int
		losses int
	}
	tally := make(map[int]*record)
	bump := func(regID int) *record {
		r, ok := tally[regID]
		if !ok {
			r = &record{regID: regID}
			tally[regID] = r
		}
		return r
	}
	for _, match := range matches {
		if match.EntrantAID == nil || match.EntrantBID == nil {
			continue
		}
		a, b := bump(*match.EntrantAID), bump(*match.EntrantBID)
		if match.WinnerID == nil {
			continue
		}
		if *match.WinnerID == a.regID {
			a.wins++
			b.losses++
		} else {
			b.wins++
			a.losses++
		}
	}
	if len(tally) == 0 {
		return nil, nil
	}

	records := make([]*record, 0, len(tally))
	for _, r := range tally {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].wins != records[j].wins {
			return records[i].wins > records[j].wins
		}
		if records[i].losses != records[j].losses {
			return records[i].losses < records[j].losses
		}
		return records[i].regID < records[j].regID
	})
	return &records[0].regID, nil
}

// recipientForRegistrationID resolves the notification target of a
// registration: the solo user or the team captain. Failures degrade to
// "nobody" rather than failing the caller.
func (s *MatchService) recipientForRegistrationID(ctx context.Context, registrationID int) int {
	registration, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		s.logger.Warn("recipient lookup failed",
			slog.Int("registration_id", registrationID), slog.Any("error", err))
		return 0
	}
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

func mapMatchRepoError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrNotFound
	}
	return err
}
