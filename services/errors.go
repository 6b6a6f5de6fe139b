package services

import "errors"

// Shared errors mapped to HTTP codes in the handlers layer.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrValidationFailed   = errors.New("validation failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Tournament lifecycle
	ErrTournamentInvalidRegDate          = errors.New("registration close must be after registration open")
	ErrTournamentInvalidDateRange        = errors.New("tournament end must be after start")
	ErrTournamentRegAfterStart           = errors.New("registration must close before the tournament starts")
	ErrTournamentInvalidSlotSize         = errors.New("tournament slot size must be at least 2")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNotRunning              = errors.New("tournament is not running")

	// Registration gate
	ErrRegistrationWindowClosed = errors.New("tournament registration window is closed")
	ErrRegistrationConflict     = errors.New("entrant already has an active registration for this tournament")
	ErrRegistrationTerminal     = errors.New("registration is rejected or withdrawn and cannot change")
	ErrPaymentNotVerifiable     = errors.New("payment is not in a verifiable state")
	ErrTournamentFull           = errors.New("tournament is full and the waitlist is disabled")
	ErrEntrantAmbiguous         = errors.New("exactly one of user or team must be provided")

	// Brackets
	ErrBracketAlreadyGenerated = errors.New("bracket has already been generated for this tournament")
	ErrBracketLocked           = errors.New("bracket is locked: matches have already progressed")
	ErrNotEnoughEntrants       = errors.New("not enough confirmed entrants to generate a bracket")
	ErrBracketTypeUnsupported  = errors.New("bracket generation is not supported for this format")

	// Match state machine
	ErrIllegalTransition   = errors.New("illegal match state transition")
	ErrMatchMissingEntrant = errors.New("match does not have both entrants yet")
	ErrMatchStartTooEarly  = errors.New("match cannot start this far ahead of its scheduled time")
	ErrInvalidScore        = errors.New("invalid score report")
	ErrReporterNotEntrant  = errors.New("reporter is not an entrant of this match")
	ErrDrawNotAllowed      = errors.New("draw results are not allowed for this tournament")
	ErrDuplicateReport     = errors.New("this side has already reported a result")

	// Disputes
	ErrDisputeNotOpen          = errors.New("dispute is not open")
	ErrDisputeAlreadyOpen      = errors.New("match already has an open dispute")
	ErrEvidenceInvalidType     = errors.New("unsupported evidence content type")
	ErrEvidenceStorageDisabled = errors.New("evidence storage is not configured")

	// Scheduling
	ErrScheduleNotApplicable = errors.New("tournament has no schedulable matches")
)
