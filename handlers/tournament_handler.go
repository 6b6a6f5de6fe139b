package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
	"github.com/deltacrown/deltacrown/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService *services.TournamentService
	schedulerService  *services.SchedulerService
}

func NewTournamentHandler(tournamentService *services.TournamentService, schedulerService *services.SchedulerService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		schedulerService:  schedulerService,
	}
}

type createTournamentRequest struct {
	Name        string                     `json:"name"`
	Slug        string                     `json:"slug"`
	Game        string                     `json:"game"`
	Description *string                    `json:"description"`
	Format      models.TournamentFormat    `json:"format"`
	SlotSize    int                        `json:"slot_size"`
	RegOpenAt   time.Time                  `json:"reg_open_at"`
	RegCloseAt  time.Time                  `json:"reg_close_at"`
	StartAt     time.Time                  `json:"start_at"`
	EndAt       time.Time                  `json:"end_at"`
	Settings    *models.TournamentSettings `json:"settings"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), services.CreateTournamentInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Game:        req.Game,
		Description: req.Description,
		OrganizerID: userID,
		Format:      req.Format,
		SlotSize:    req.SlotSize,
		RegOpenAt:   req.RegOpenAt,
		RegCloseAt:  req.RegCloseAt,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Settings:    req.Settings,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tournament, nil)
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetByID(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	tournament, err := h.tournamentService.GetBySlug(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{Limit: 50}
	query := r.URL.Query()

	if game := query.Get("game"); game != "" {
		filter.Game = &game
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

type updateTournamentRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	SlotSize    *int       `json:"slot_size"`
	RegOpenAt   *time.Time `json:"reg_open_at"`
	RegCloseAt  *time.Time `json:"reg_close_at"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), tournamentID, userID, func(t *models.Tournament) {
		if req.Name != nil {
			t.Name = *req.Name
		}
		if req.Description != nil {
			t.Description = req.Description
		}
		if req.SlotSize != nil {
			t.SlotSize = *req.SlotSize
		}
		if req.RegOpenAt != nil {
			t.RegOpenAt = *req.RegOpenAt
		}
		if req.RegCloseAt != nil {
			t.RegCloseAt = *req.RegCloseAt
		}
		if req.StartAt != nil {
			t.StartAt = *req.StartAt
		}
		if req.EndAt != nil {
			t.EndAt = *req.EndAt
		}
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
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

	var settings models.TournamentSettings
	if err := readJSON(w, r, &settings); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.tournamentService.UpdateSettings(r.Context(), tournamentID, userID, &settings); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings, nil)
}

type transitionRequest struct {
	Status models.TournamentStatus `json:"status"`
}

func (h *TournamentHandler) Transition(w http.ResponseWriter, r *http.Request) {
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

	var req transitionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournamentService.Transition(r.Context(), tournamentID, userID, req.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament, nil)
}

// Schedule triggers auto-scheduling for a tournament on demand.
func (h *TournamentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	scheduled, err := h.schedulerService.AutoSchedule(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"scheduled": scheduled}, nil)
}
