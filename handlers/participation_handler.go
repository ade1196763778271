package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type ParticipationHandler struct {
	participationService services.ParticipationService
	logger               *slog.Logger
}

func NewParticipationHandler(participationService services.ParticipationService, logger *slog.Logger) *ParticipationHandler {
	return &ParticipationHandler{participationService: participationService, logger: logger}
}

type assignRequest struct {
	RaceID        int `json:"race_id"`
	ParticipantID int `json:"participant_id"`
}

// Assign обрабатывает POST /api/participations: запись участника на гонку.
func (h *ParticipationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RaceID <= 0 || req.ParticipantID <= 0 {
		writeError(w, http.StatusBadRequest, "race_id and participant_id are required")
		return
	}

	participation, err := h.participationService.Assign(r.Context(), req.RaceID, req.ParticipantID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participation)
}

// Remove обрабатывает DELETE /api/races/{raceID}/participants/{participantID}.
func (h *ParticipationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	raceID, err := idParam(r, "raceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	participantID, err := idParam(r, "participantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.participationService.Remove(r.Context(), raceID, participantID); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CycleStatus обрабатывает POST /api/participations/{participationID}/cycle-status.
func (h *ParticipationHandler) CycleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participation, err := h.participationService.CycleStatus(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participation)
}

// MoveUp обрабатывает POST /api/participations/{participationID}/move-up.
func (h *ParticipationHandler) MoveUp(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participation, err := h.participationService.MoveUp(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participation)
}

// MoveDown обрабатывает POST /api/participations/{participationID}/move-down.
func (h *ParticipationHandler) MoveDown(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participation, err := h.participationService.MoveDown(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participation)
}
