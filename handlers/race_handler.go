package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/services"
)

type RaceHandler struct {
	raceService          services.RaceService
	participationService services.ParticipationService
	logger               *slog.Logger
}

func NewRaceHandler(raceService services.RaceService, participationService services.ParticipationService, logger *slog.Logger) *RaceHandler {
	return &RaceHandler{raceService: raceService, participationService: participationService, logger: logger}
}

// Create обрабатывает POST /api/races.
func (h *RaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRaceInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	race, err := h.raceService.Create(r.Context(), input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, race)
}

// Get обрабатывает GET /api/races/{raceID}: гонка с этапом и зачетом.
func (h *RaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	race, err := h.raceService.GetDetail(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

// Update обрабатывает PATCH /api/races/{raceID}.
func (h *RaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.UpdateRaceInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	race, err := h.raceService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

type updateRaceStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus обрабатывает PATCH /api/races/{raceID}/status.
func (h *RaceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateRaceStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	race, err := h.raceService.UpdateStatus(r.Context(), id, models.RaceStatus(req.Status))
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

// Delete обрабатывает DELETE /api/races/{raceID}.
func (h *RaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.raceService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Participations обрабатывает GET /api/races/{raceID}/participations:
// стартовый протокол гонки.
func (h *RaceHandler) Participations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participations, err := h.participationService.ListByRace(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participations)
}

// AvailableParticipants обрабатывает GET /api/races/{raceID}/available-participants.
func (h *RaceHandler) AvailableParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participants, err := h.participationService.ListAvailableParticipants(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}
