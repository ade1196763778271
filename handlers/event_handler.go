package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type EventHandler struct {
	eventService services.EventService
	logger       *slog.Logger
}

func NewEventHandler(eventService services.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{eventService: eventService, logger: logger}
}

// ListBySeries обрабатывает GET /api/series/{seriesID}/events.
func (h *EventHandler) ListBySeries(w http.ResponseWriter, r *http.Request) {
	seriesID, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.eventService.ListBySeries(r.Context(), seriesID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Create обрабатывает POST /api/events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateEventInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.Create(r.Context(), input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// Get обрабатывает GET /api/events/{eventID}: этап с гонками.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.GetDetail(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update обрабатывает PATCH /api/events/{eventID}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.UpdateEventInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete обрабатывает DELETE /api/events/{eventID}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetImportStatus обрабатывает POST /api/events/{eventID}/reset-import.
func (h *EventHandler) ResetImportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.ResetImportStatus(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
