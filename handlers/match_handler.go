package handlers

import (
	"net/http"
	"strconv"

	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/services"
)

type MatchHandler struct {
	matchService        *services.MatchService
	registrationService *services.RegistrationService
	bracketService      *services.BracketService
}

func NewMatchHandler(
	matchService *services.MatchService,
	registrationService *services.RegistrationService,
	bracketService *services.BracketService,
) *MatchHandler {
	return &MatchHandler{
		matchService:        matchService,
		registrationService: registrationService,
		bracketService:      bracketService,
	}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var roundFilter *int
	if roundStr := r.URL.Query().Get("round"); roundStr != "" {
		if round, convErr := strconv.Atoi(roundStr); convErr == nil && round > 0 {
			roundFilter = &round
		}
	}
	var stateFilter *models.MatchState
	if stateStr := r.URL.Query().Get("state"); stateStr != "" {
		state := models.MatchState(stateStr)
		stateFilter = &state
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, roundFilter, stateFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.Start(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}

type submitResultRequest struct {
	RegistrationID int `json:"registration_id"`
	ScoreA         int `json:"score_a"`
	ScoreB         int `json:"score_b"`
}

// SubmitResult records the caller's score claim for their side of the
// match. The caller must control the reporting registration.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req submitResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	owns, err := h.registrationService.ActorOwns(r.Context(), req.RegistrationID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !owns {
		forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
		return
	}

	match, err := h.matchService.SubmitResult(r.Context(), matchID, req.RegistrationID,
		models.ScoreReport{ScoreA: req.ScoreA, ScoreB: req.ScoreB})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}

type verifyMatchRequest struct {
	ScoreA int `json:"score_a"`
	ScoreB int `json:"score_b"`
}

// Verify lets the organizer rule on a reported or disputed match
// directly, without waiting for the opposing side's report.
func (h *MatchHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req verifyMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Verify(r.Context(), matchID, userID,
		models.ScoreReport{ScoreA: req.ScoreA, ScoreB: req.ScoreB})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}

// GenerateBracket builds the bracket for a tournament.
func (h *MatchHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matches, err := h.bracketService.Generate(r.Context(), tournamentID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

// GetBracket returns the tournament with registrations and matches.
func (h *MatchHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.bracketService.GetFullBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament, nil)
}
