package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
	logger             *slog.Logger
}

func NewParticipantHandler(participantService services.ParticipantService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService, logger: logger}
}

// ListByContest обрабатывает GET /api/contests/{contestID}/participants.
func (h *ParticipantHandler) ListByContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participants, err := h.participantService.ListByContest(r.Context(), contestID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

// Create обрабатывает POST /api/participants.
func (h *ParticipantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := h.participantService.Create(r.Context(), input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// Get обрабатывает GET /api/participants/{participantID}.
func (h *ParticipantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := h.participantService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

// Update обрабатывает PATCH /api/participants/{participantID}.
func (h *ParticipantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.UpdateParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := h.participantService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

// Delete обрабатывает DELETE /api/participants/{participantID}.
func (h *ParticipantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "participantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.participantService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
