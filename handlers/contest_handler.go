package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cyclocross/stevenscup-app/services"
)

type ContestHandler struct {
	contestService services.ContestService
	rankingService services.RankingService
	logger         *slog.Logger
}

func NewContestHandler(contestService services.ContestService, rankingService services.RankingService, logger *slog.Logger) *ContestHandler {
	return &ContestHandler{contestService: contestService, rankingService: rankingService, logger: logger}
}

// ListBySeries обрабатывает GET /api/series/{seriesID}/contests.
func (h *ContestHandler) ListBySeries(w http.ResponseWriter, r *http.Request) {
	seriesID, err := idParam(r, "seriesID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contests, err := h.contestService.ListBySeries(r.Context(), seriesID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contests)
}

// Create обрабатывает POST /api/contests.
func (h *ContestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateContestInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contest, err := h.contestService.Create(r.Context(), input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contest)
}

// Get обрабатывает GET /api/contests/{contestID}: зачет с серией,
// гонками и участниками.
func (h *ContestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contest, err := h.contestService.GetDetail(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contest)
}

// Update обрабатывает PATCH /api/contests/{contestID}.
func (h *ContestHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.UpdateContestInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contest, err := h.contestService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contest)
}

// Delete обрабатывает DELETE /api/contests/{contestID}.
func (h *ContestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.contestService.Delete(r.Context(), id); err != nil {
		mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statistics обрабатывает GET /api/contests/{contestID}/statistics.
func (h *ContestHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.rankingService.GetContestStatistics(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
