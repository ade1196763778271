package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type ImportHandler struct {
	importService services.ImportService
	logger        *slog.Logger
}

func NewImportHandler(importService services.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importService: importService, logger: logger}
}

type importRequest struct {
	SeriesID int    `json:"series_id"`
	EventID  *int   `json:"event_id,omitempty"`
	URL      string `json:"url"`
}

// ImportRaceResult обрабатывает POST /api/import/raceresult: скачивает
// выгрузку RaceResult и апсертит зачеты серии.
func (h *ImportHandler) ImportRaceResult(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SeriesID <= 0 || req.URL == "" {
		writeError(w, http.StatusBadRequest, "series_id and url are required")
		return
	}

	result, err := h.importService.ImportContests(r.Context(), req.SeriesID, req.EventID, req.URL)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
