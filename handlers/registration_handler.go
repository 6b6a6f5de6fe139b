package handlers

import (
	"net/http"

	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(registrationService *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

type registerRequest struct {
	TeamID *int `json:"team_id"`
}

// Register creates a registration for the authenticated user, solo by
// default or on behalf of their team when team_id is given.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
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

	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.RegisterInput{TournamentID: tournamentID}
	if req.TeamID != nil {
		input.TeamID = req.TeamID
	} else {
		input.UserID = &userID
	}

	registration, err := h.registrationService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registration, nil)
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var statusFilter *models.RegistrationStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.RegistrationStatus(statusStr)
		statusFilter = &status
	}
	registrations, err := h.registrationService.ListByTournament(r.Context(), tournamentID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil)
}

func (h *RegistrationHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := idParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	owns, err := h.registrationService.ActorOwns(r.Context(), registrationID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !owns {
		forbiddenResponse(w, r, services.ErrForbiddenOperation.Error())
		return
	}
	if err := h.registrationService.SubmitPayment(r.Context(), registrationID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"payment_status": models.PaymentPending}, nil)
}

type verifyPaymentRequest struct {
	Approve bool `json:"approve"`
}

func (h *RegistrationHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := idParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req verifyPaymentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	registration, err := h.registrationService.VerifyPayment(r.Context(), registrationID, userID, req.Approve)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registration, nil)
}

func (h *RegistrationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := idParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.registrationService.Withdraw(r.Context(), registrationID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": models.RegistrationWithdrawn}, nil)
}
