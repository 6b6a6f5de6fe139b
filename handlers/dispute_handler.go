package handlers

import (
	"errors"
	"net/http"

	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/services"
)

const maxEvidenceBytes = 20 << 20 // 20MB

type DisputeHandler struct {
	disputeService *services.DisputeService
	matchService   *services.MatchService
}

func NewDisputeHandler(disputeService *services.DisputeService, matchService *services.MatchService) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
		matchService:   matchService,
	}
}

func (h *DisputeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	dispute, err := h.disputeService.GetByID(r.Context(), disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dispute, nil)
}

func (h *DisputeHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var statusFilter *models.DisputeStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.DisputeStatus(statusStr)
		statusFilter = &status
	}
	disputes, err := h.disputeService.ListByTournament(r.Context(), tournamentID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes}, nil)
}

// AddEvidence accepts a multipart upload under the "evidence" field.
func (h *DisputeHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes)
	if err := r.ParseMultipartForm(maxEvidenceBytes); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}
	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing evidence file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	evidence, err := h.disputeService.AddEvidence(r.Context(), disputeID, userID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, evidence, nil)
}

type resolveDisputeRequest struct {
	ScoreA     int    `json:"score_a"`
	ScoreB     int    `json:"score_b"`
	Resolution string `json:"resolution"`
}

// Resolve records the organizer's ruling and advances the bracket.
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req resolveDisputeRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.ResolveDispute(r.Context(), disputeID, userID,
		models.ScoreReport{ScoreA: req.ScoreA, ScoreB: req.ScoreB}, req.Resolution)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}
